package application

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-wallet/pkg/ledger"
	"github.com/veil-network/veil-wallet/pkg/shielder"
)

// PreparedShield is everything a caller needs to submit a shield: the packed
// calldata, the simulated gas cost and the ephemeral key that lets this
// wallet later prove which viewing key it shielded to.
type PreparedShield struct {
	Request      *shielder.ShieldRequest
	EphemeralKey [32]byte
	GasEstimate  uint64
	Calldata     []byte
}

// ShieldService prepares shield transactions end to end: blocklist check,
// request construction, dry run. Nothing is ever broadcast from here, the
// caller signs and submits the calldata itself.
type ShieldService interface {
	// PrepareShield builds and simulates a single-request shield from the
	// given sender account. It fails with ErrBlockedToken before building
	// anything when the pool blocklists the token, and with a
	// *shielder.CallRevertError when the dry run predicts a revert.
	PrepareShield(
		ctx context.Context, walletID uuid.UUID, from common.Address,
		recipientAddress string, token ledger.TokenData, value *big.Int,
	) (*PreparedShield, error)
}

// ShieldServiceOpts is the struct given to the NewShieldService method.
type ShieldServiceOpts struct {
	LedgerService   ledger.Service
	ShielderService shielder.Service
	WalletService   WalletService
}

func (o ShieldServiceOpts) validate() error {
	if o.LedgerService == nil {
		return ErrNullLedgerService
	}
	if o.ShielderService == nil {
		return ErrNullShielderService
	}
	if o.WalletService == nil {
		return ErrNullWalletService
	}
	return nil
}

type shieldService struct {
	ledgerService   ledger.Service
	shielderService shielder.Service
	walletService   WalletService
}

// NewShieldService returns a new ShieldService from the given opts.
func NewShieldService(opts ShieldServiceOpts) (ShieldService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &shieldService{
		ledgerService:   opts.LedgerService,
		shielderService: opts.ShielderService,
		walletService:   opts.WalletService,
	}, nil
}

func (s *shieldService) PrepareShield(
	ctx context.Context, walletID uuid.UUID, from common.Address,
	recipientAddress string, token ledger.TokenData, value *big.Int,
) (*PreparedShield, error) {
	// shielding requires an unlocked wallet even though only the recipient
	// address is used, so a locked wallet cannot leak activity
	if _, err := s.walletService.Keys(walletID); err != nil {
		return nil, err
	}

	blocked, err := s.ledgerService.TokenBlocked(ctx, token.Address)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlockedToken
	}

	request, ephemeralKey, err := shielder.BuildShieldRequest(
		shielder.BuildShieldRequestOpts{
			RecipientAddress: recipientAddress,
			Token:            token,
			Value:            value,
		},
	)
	if err != nil {
		return nil, err
	}

	simulation, err := s.shielderService.Simulate(
		ctx, from, []*shielder.ShieldRequest{request}, nil,
	)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"wallet": walletID,
		"token":  token.Address.Hex(),
		"gas":    simulation.GasEstimate,
	}).Info("shield prepared")

	return &PreparedShield{
		Request:      request,
		EphemeralKey: ephemeralKey,
		GasEstimate:  simulation.GasEstimate,
		Calldata:     simulation.Calldata,
	}, nil
}
