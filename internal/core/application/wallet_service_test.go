package application_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veil-network/veil-wallet/internal/core/application"
	"github.com/veil-network/veil-wallet/internal/core/domain"
	"github.com/veil-network/veil-wallet/pkg/keychain"
)

func newWalletService(t *testing.T) application.WalletService {
	svc, err := application.NewWalletService(application.WalletServiceOpts{
		WalletRepository: newInMemoryWalletRepository(),
	})
	require.NoError(t, err)
	return svc
}

func TestWalletLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping key-stretching test in short mode")
	}

	ctx := context.Background()
	svc := newWalletService(t)

	mnemonic, err := svc.GenSeed(ctx)
	require.NoError(t, err)
	require.Len(t, strings.Fields(mnemonic), 24)

	wallet, err := svc.CreateWallet(ctx, mnemonic, "passphrase", 0)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, wallet.ID)
	// the record carries the mnemonic encrypted, never in the clear
	require.NotContains(t, wallet.EncryptedMnemonic, strings.Fields(mnemonic)[0])

	// locked wallets expose nothing
	_, err = svc.Keys(wallet.ID)
	require.EqualError(t, err, domain.ErrWalletMustBeUnlocked.Error())
	_, err = svc.Address(wallet.ID, nil)
	require.EqualError(t, err, domain.ErrWalletMustBeUnlocked.Error())

	require.Error(t, svc.UnlockWallet(ctx, wallet.ID, "wrong passphrase"))

	require.NoError(t, svc.UnlockWallet(ctx, wallet.ID, "passphrase"))
	require.EqualError(
		t,
		svc.UnlockWallet(ctx, wallet.ID, "passphrase"),
		domain.ErrWalletAlreadyUnlocked.Error(),
	)

	keys, err := svc.Keys(wallet.ID)
	require.NoError(t, err)
	require.NotNil(t, keys.MasterPublicKey)

	address, err := svc.Address(wallet.ID, &keychain.Chain{ID: 1})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(address, "veil1"))

	require.NoError(t, svc.LockWallet(wallet.ID))
	_, err = svc.Keys(wallet.ID)
	require.EqualError(t, err, domain.ErrWalletMustBeUnlocked.Error())

	wallets, err := svc.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
}

func TestFailingCreateWallet(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(t)

	tests := []struct {
		name       string
		mnemonic   string
		passphrase string
		err        error
	}{
		{"null_mnemonic", "", "pass", domain.ErrNullMnemonicOrPassphrase},
		{"null_passphrase", testMnemonic, "", domain.ErrNullMnemonicOrPassphrase},
		{
			"invalid_mnemonic",
			"these are certainly not twelve valid bip39 seed words at all",
			"pass",
			keychain.ErrInvalidMnemonic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet, err := svc.CreateWallet(ctx, tt.mnemonic, tt.passphrase, 0)
			require.Nil(t, wallet)
			require.EqualError(t, err, tt.err.Error())
		})
	}
}

func TestFailingNewWalletService(t *testing.T) {
	svc, err := application.NewWalletService(application.WalletServiceOpts{})
	require.Nil(t, svc)
	require.EqualError(t, err, application.ErrNullWalletRepository.Error())
}

func TestLockUnknownWallet(t *testing.T) {
	svc := newWalletService(t)
	require.EqualError(
		t, svc.LockWallet(uuid.New()), domain.ErrWalletMustBeUnlocked.Error(),
	)
}
