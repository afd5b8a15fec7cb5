package domain

import (
	"context"

	"github.com/google/uuid"
)

// NoteRepository is the decrypted-commitment cache, the only durable shared
// state of the engine. Writers replace whole-wallet snapshots atomically;
// two scans of the same wallet must never interleave per-note writes.
type NoteRepository interface {
	// GetSnapshot returns the latest snapshot of the wallet, or
	// ErrSnapshotNotFound.
	GetSnapshot(ctx context.Context, walletID uuid.UUID) (*WalletSnapshot, error)
	// PutSnapshot stores the snapshot if its generation is newer than the
	// stored one, otherwise fails with ErrStaleSnapshot.
	PutSnapshot(ctx context.Context, snapshot *WalletSnapshot) error
	// DeleteSnapshot clears the cache of the wallet.
	DeleteSnapshot(ctx context.Context, walletID uuid.UUID) error
}

// WalletRepository persists wallet records.
type WalletRepository interface {
	GetWallet(ctx context.Context, id uuid.UUID) (*Wallet, error)
	AddWallet(ctx context.Context, wallet *Wallet) error
	ListWallets(ctx context.Context) ([]Wallet, error)
}
