package domain

import "errors"

var (
	// ErrWalletMustBeUnlocked is thrown when trying to make an operation
	// that requires the wallet keys in memory.
	ErrWalletMustBeUnlocked = errors.New("wallet must be unlocked to perform this operation")
	// ErrWalletAlreadyUnlocked ...
	ErrWalletAlreadyUnlocked = errors.New("wallet is already unlocked")
	// ErrWalletNotFound ...
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrSnapshotNotFound ...
	ErrSnapshotNotFound = errors.New("no snapshot stored for wallet")
	// ErrStaleSnapshot is thrown when a scan tries to commit a snapshot
	// older than the one already stored.
	ErrStaleSnapshot = errors.New("snapshot generation is older than the stored one")
	// ErrNullMnemonicOrPassphrase ...
	ErrNullMnemonicOrPassphrase = errors.New("mnemonic and/or passphrase must not be null")
)
