package keychain

import "errors"

var (
	// ErrInvalidMnemonic is returned when the provided mnemonic does not pass
	// BIP39 validation.
	ErrInvalidMnemonic = errors.New("mnemonic is invalid")
	// ErrNullMnemonic ...
	ErrNullMnemonic = errors.New("mnemonic must not be null")
	// ErrInvalidEntropySize ...
	ErrInvalidEntropySize = errors.New(
		"entropy size must be a multiple of 32 in the range [128,256]",
	)
	// ErrNullPassphrase ...
	ErrNullPassphrase = errors.New("passphrase must not be null")
	// ErrNullPlainText ...
	ErrNullPlainText = errors.New("text to encrypt must not be null")
	// ErrNullCypherText ...
	ErrNullCypherText = errors.New("cypher to decrypt must not be null")
	// ErrInvalidCypherText ...
	ErrInvalidCypherText = errors.New("cypher must be in base64 format")

	// ErrMalformedAddress is returned when decoding a shielded address that
	// fails checksum, length or version checks.
	ErrMalformedAddress = errors.New("shielded address is malformed")
	// ErrNullAddress ...
	ErrNullAddress = errors.New("shielded address must not be null")
)
