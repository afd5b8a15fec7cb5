package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/veil-network/veil-wallet/internal/core/domain"
)

type noteRepositoryImpl struct {
	db *DbManager
}

// NewNoteRepositoryImpl initialize a badger implementation of the domain.NoteRepository
func NewNoteRepositoryImpl(db *DbManager) domain.NoteRepository {
	return noteRepositoryImpl{db}
}

func (r noteRepositoryImpl) GetSnapshot(
	_ context.Context, walletID uuid.UUID,
) (*domain.WalletSnapshot, error) {
	var snapshot domain.WalletSnapshot
	if err := r.db.NoteStore.Get(walletID.String(), &snapshot); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r noteRepositoryImpl) PutSnapshot(
	_ context.Context, snapshot *domain.WalletSnapshot,
) error {
	key := snapshot.WalletID.String()

	// read and replace inside one transaction, so two concurrent scans
	// cannot both commit the same generation
	return r.db.NoteStore.Badger().Update(func(tx *badger.Txn) error {
		var stored domain.WalletSnapshot
		err := r.db.NoteStore.TxGet(tx, key, &stored)
		if err != nil && err != badgerhold.ErrNotFound {
			return err
		}
		if err == nil && stored.Generation >= snapshot.Generation {
			return domain.ErrStaleSnapshot
		}
		return r.db.NoteStore.TxUpsert(tx, key, *snapshot)
	})
}

func (r noteRepositoryImpl) DeleteSnapshot(
	_ context.Context, walletID uuid.UUID,
) error {
	err := r.db.NoteStore.Delete(walletID.String(), domain.WalletSnapshot{})
	if err != nil && err != badgerhold.ErrNotFound {
		return err
	}
	return nil
}
