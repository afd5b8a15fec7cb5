package application

import "errors"

var (
	// ErrNullWalletRepository ...
	ErrNullWalletRepository = errors.New("wallet repository must not be null")
	// ErrNullNoteRepository ...
	ErrNullNoteRepository = errors.New("note repository must not be null")
	// ErrNullLedgerService ...
	ErrNullLedgerService = errors.New("ledger service must not be null")
	// ErrNullWalletService ...
	ErrNullWalletService = errors.New("wallet service must not be null")
	// ErrNullShielderService ...
	ErrNullShielderService = errors.New("shielder service must not be null")
	// ErrBlockedToken is thrown when trying to shield a token the pool
	// contract blocklists.
	ErrBlockedToken = errors.New("token is blocked by the pool contract")
)
