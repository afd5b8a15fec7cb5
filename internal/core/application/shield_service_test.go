package application_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veil-network/veil-wallet/internal/core/application"
	"github.com/veil-network/veil-wallet/internal/core/domain"
	"github.com/veil-network/veil-wallet/pkg/shielder"
)

type fakeShielderService struct {
	gas       uint64
	revert    *shielder.CallRevertError
	simulated []*shielder.ShieldRequest
}

func (s *fakeShielderService) Simulate(
	_ context.Context, _ common.Address, requests []*shielder.ShieldRequest,
	_ *big.Int,
) (*shielder.Simulation, error) {
	if s.revert != nil {
		return nil, s.revert
	}
	s.simulated = requests
	calldata, err := shielder.PackShieldCall(requests)
	if err != nil {
		return nil, err
	}
	return &shielder.Simulation{GasEstimate: s.gas, Calldata: calldata}, nil
}

func newShieldService(
	t *testing.T,
	ledgerSvc *fakeLedgerService,
	shielderSvc shielder.Service,
	wallets *fakeWalletService,
) application.ShieldService {
	svc, err := application.NewShieldService(application.ShieldServiceOpts{
		LedgerService:   ledgerSvc,
		ShielderService: shielderSvc,
		WalletService:   wallets,
	})
	require.NoError(t, err)
	return svc
}

func TestPrepareShield(t *testing.T) {
	owner := testKeys(t, 0)
	wallets := newFakeWalletService()
	ownerID := wallets.add(owner)

	address, err := owner.Address(nil)
	require.NoError(t, err)

	fakeShielder := &fakeShielderService{gas: 250000}
	svc := newShieldService(t, &fakeLedgerService{head: 100}, fakeShielder, wallets)

	prepared, err := svc.PrepareShield(
		context.Background(), ownerID, common.Address{},
		address, daiToken, big.NewInt(100),
	)
	require.NoError(t, err)
	require.Equal(t, uint64(250000), prepared.GasEstimate)
	require.NotEmpty(t, prepared.Calldata)
	require.Len(t, fakeShielder.simulated, 1)
	require.Zero(t, prepared.Request.Preimage.Value.Cmp(big.NewInt(100)))
}

func TestPrepareShieldBlockedToken(t *testing.T) {
	owner := testKeys(t, 0)
	wallets := newFakeWalletService()
	ownerID := wallets.add(owner)

	address, err := owner.Address(nil)
	require.NoError(t, err)

	ledgerSvc := &fakeLedgerService{
		blocked: map[common.Address]bool{daiToken.Address: true},
	}
	svc := newShieldService(t, ledgerSvc, &fakeShielderService{}, wallets)

	prepared, err := svc.PrepareShield(
		context.Background(), ownerID, common.Address{},
		address, daiToken, big.NewInt(100),
	)
	require.Nil(t, prepared)
	require.EqualError(t, err, application.ErrBlockedToken.Error())
}

func TestPrepareShieldPredictedRevert(t *testing.T) {
	owner := testKeys(t, 0)
	wallets := newFakeWalletService()
	ownerID := wallets.add(owner)

	address, err := owner.Address(nil)
	require.NoError(t, err)

	fakeShielder := &fakeShielderService{
		revert: &shielder.CallRevertError{Reason: "insufficient allowance"},
	}
	svc := newShieldService(t, &fakeLedgerService{}, fakeShielder, wallets)

	prepared, err := svc.PrepareShield(
		context.Background(), ownerID, common.Address{},
		address, daiToken, big.NewInt(100),
	)
	require.Nil(t, prepared)

	var revert *shielder.CallRevertError
	require.ErrorAs(t, err, &revert)
	require.Equal(t, "insufficient allowance", revert.Reason)
}

func TestPrepareShieldRequiresUnlockedWallet(t *testing.T) {
	owner := testKeys(t, 0)
	wallets := newFakeWalletService()

	address, err := owner.Address(nil)
	require.NoError(t, err)

	svc := newShieldService(t, &fakeLedgerService{}, &fakeShielderService{}, wallets)

	prepared, err := svc.PrepareShield(
		context.Background(), uuid.New(), common.Address{},
		address, daiToken, big.NewInt(100),
	)
	require.Nil(t, prepared)
	require.EqualError(t, err, domain.ErrWalletMustBeUnlocked.Error())
}
