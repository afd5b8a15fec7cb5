package notecrypto

import "errors"

var (
	// ErrKeyGeneration ...
	ErrKeyGeneration = errors.New("ephemeral key generation failed")
	// ErrValueOverflow is returned when a note value does not fit the
	// 128-bit wire field.
	ErrValueOverflow = errors.New("note value exceeds 128 bits")
	// ErrFieldOverflow is returned when a commitment field does not fit the
	// Poseidon field.
	ErrFieldOverflow = errors.New("value is not a valid field element")
)
