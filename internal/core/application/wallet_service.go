package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-wallet/internal/core/domain"
	"github.com/veil-network/veil-wallet/pkg/keychain"
)

// WalletService manages wallet records and the in-memory key material of the
// unlocked ones. Only the encrypted mnemonic ever reaches the repository,
// derived keys live in memory between Unlock and Lock.
type WalletService interface {
	// GenSeed returns a fresh mnemonic. Nothing is persisted.
	GenSeed(ctx context.Context) (string, error)
	// CreateWallet encrypts the mnemonic under the passphrase and persists
	// the wallet record.
	CreateWallet(
		ctx context.Context, mnemonic, passphrase string, accountIndex uint32,
	) (*domain.Wallet, error)
	// UnlockWallet decrypts the mnemonic and derives the wallet keys into
	// memory.
	UnlockWallet(ctx context.Context, walletID uuid.UUID, passphrase string) error
	// LockWallet zeroes and drops the in-memory keys of the wallet.
	LockWallet(walletID uuid.UUID) error
	// Keys returns the in-memory keys of an unlocked wallet, or
	// ErrWalletMustBeUnlocked.
	Keys(walletID uuid.UUID) (*keychain.WalletKeys, error)
	// Address returns the shielded address of an unlocked wallet, nil chain
	// meaning valid on all chains.
	Address(walletID uuid.UUID, chain *keychain.Chain) (string, error)
	// ListWallets returns all persisted wallet records.
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
}

// WalletServiceOpts is the struct given to the NewWalletService method.
type WalletServiceOpts struct {
	WalletRepository domain.WalletRepository
}

func (o WalletServiceOpts) validate() error {
	if o.WalletRepository == nil {
		return ErrNullWalletRepository
	}
	return nil
}

type walletService struct {
	walletRepository domain.WalletRepository

	lock     sync.RWMutex
	unlocked map[uuid.UUID]*keychain.WalletKeys
}

// NewWalletService returns a new WalletService from the given opts.
func NewWalletService(opts WalletServiceOpts) (WalletService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &walletService{
		walletRepository: opts.WalletRepository,
		unlocked:         make(map[uuid.UUID]*keychain.WalletKeys),
	}, nil
}

func (s *walletService) GenSeed(_ context.Context) (string, error) {
	return keychain.NewMnemonic(keychain.NewMnemonicOpts{EntropySize: 256})
}

func (s *walletService) CreateWallet(
	ctx context.Context, mnemonic, passphrase string, accountIndex uint32,
) (*domain.Wallet, error) {
	if len(mnemonic) <= 0 || len(passphrase) <= 0 {
		return nil, domain.ErrNullMnemonicOrPassphrase
	}
	if !keychain.IsMnemonicValid(mnemonic) {
		return nil, keychain.ErrInvalidMnemonic
	}

	encrypted, err := keychain.Encrypt(keychain.EncryptOpts{
		PlainText:  mnemonic,
		Passphrase: passphrase,
	})
	if err != nil {
		return nil, err
	}

	wallet := &domain.Wallet{
		ID:                uuid.New(),
		EncryptedMnemonic: encrypted,
		AccountIndex:      accountIndex,
		CreatedAt:         time.Now(),
	}
	if err := s.walletRepository.AddWallet(ctx, wallet); err != nil {
		return nil, err
	}

	log.WithField("wallet", wallet.ID).Info("wallet created")
	return wallet, nil
}

func (s *walletService) UnlockWallet(
	ctx context.Context, walletID uuid.UUID, passphrase string,
) error {
	s.lock.RLock()
	_, alreadyUnlocked := s.unlocked[walletID]
	s.lock.RUnlock()
	if alreadyUnlocked {
		return domain.ErrWalletAlreadyUnlocked
	}

	wallet, err := s.walletRepository.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}

	mnemonic, err := keychain.Decrypt(keychain.DecryptOpts{
		CypherText: wallet.EncryptedMnemonic,
		Passphrase: passphrase,
	})
	if err != nil {
		return err
	}

	keys, err := keychain.DeriveKeys(keychain.DeriveKeysOpts{
		Mnemonic:     mnemonic,
		AccountIndex: wallet.AccountIndex,
	})
	if err != nil {
		return err
	}

	s.lock.Lock()
	s.unlocked[walletID] = keys
	s.lock.Unlock()

	log.WithField("wallet", walletID).Info("wallet unlocked")
	return nil
}

func (s *walletService) LockWallet(walletID uuid.UUID) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	keys, ok := s.unlocked[walletID]
	if !ok {
		return domain.ErrWalletMustBeUnlocked
	}
	keys.Zero()
	delete(s.unlocked, walletID)

	log.WithField("wallet", walletID).Info("wallet locked")
	return nil
}

func (s *walletService) Keys(walletID uuid.UUID) (*keychain.WalletKeys, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	keys, ok := s.unlocked[walletID]
	if !ok {
		return nil, domain.ErrWalletMustBeUnlocked
	}
	return keys, nil
}

func (s *walletService) Address(
	walletID uuid.UUID, chain *keychain.Chain,
) (string, error) {
	keys, err := s.Keys(walletID)
	if err != nil {
		return "", err
	}
	return keys.Address(chain)
}

func (s *walletService) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	return s.walletRepository.ListWallets(ctx)
}
