package dbbadger

import (
	"context"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/veil-network/veil-wallet/internal/core/domain"
)

type walletRepositoryImpl struct {
	db *DbManager
}

// NewWalletRepositoryImpl initialize a badger implementation of the domain.WalletRepository
func NewWalletRepositoryImpl(db *DbManager) domain.WalletRepository {
	return walletRepositoryImpl{db}
}

func (r walletRepositoryImpl) GetWallet(
	_ context.Context, id uuid.UUID,
) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := r.db.WalletStore.Get(id.String(), &wallet); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r walletRepositoryImpl) AddWallet(
	_ context.Context, wallet *domain.Wallet,
) error {
	return r.db.WalletStore.Insert(wallet.ID.String(), *wallet)
}

func (r walletRepositoryImpl) ListWallets(
	_ context.Context,
) ([]domain.Wallet, error) {
	wallets := make([]domain.Wallet, 0)
	if err := r.db.WalletStore.Find(&wallets, &badgerhold.Query{}); err != nil {
		return nil, err
	}
	return wallets, nil
}
