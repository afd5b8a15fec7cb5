package application

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-wallet/internal/core/domain"
	"github.com/veil-network/veil-wallet/pkg/poi"
)

// BalanceService computes per-token balances from the decrypted-commitment
// cache and keeps the compliance-proof statuses of the notes fresh.
type BalanceService interface {
	// Balances folds the wallet's cached notes into per-token balances. A
	// wallet that was never scanned yields an empty map.
	Balances(
		ctx context.Context, walletID uuid.UUID,
	) (map[string]*domain.TokenBalance, error)
	// RefreshProofStatuses queries the proof aggregator for every unspent
	// note and commits the updated snapshot. The aggregator is best effort:
	// when it is unreachable the cached statuses stand and no error is
	// returned.
	RefreshProofStatuses(
		ctx context.Context, walletID uuid.UUID,
	) (*domain.WalletSnapshot, error)
}

// BalanceServiceOpts is the struct given to the NewBalanceService method.
type BalanceServiceOpts struct {
	NoteRepository domain.NoteRepository
	// PoiService may be nil, in which case statuses are never refreshed
	// and notes keep their cached status.
	PoiService poi.Service
}

func (o BalanceServiceOpts) validate() error {
	if o.NoteRepository == nil {
		return ErrNullNoteRepository
	}
	return nil
}

type balanceService struct {
	noteRepository domain.NoteRepository
	poiService     poi.Service
}

// NewBalanceService returns a new BalanceService from the given opts.
func NewBalanceService(opts BalanceServiceOpts) (BalanceService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &balanceService{
		noteRepository: opts.NoteRepository,
		poiService:     opts.PoiService,
	}, nil
}

func (s *balanceService) Balances(
	ctx context.Context, walletID uuid.UUID,
) (map[string]*domain.TokenBalance, error) {
	snapshot, err := s.noteRepository.GetSnapshot(ctx, walletID)
	if err == domain.ErrSnapshotNotFound {
		// a wallet that was never scanned simply has no balance yet
		return map[string]*domain.TokenBalance{}, nil
	}
	if err != nil {
		return nil, err
	}
	return domain.AggregateBalances(snapshot.Notes), nil
}

func (s *balanceService) RefreshProofStatuses(
	ctx context.Context, walletID uuid.UUID,
) (*domain.WalletSnapshot, error) {
	snapshot, err := s.noteRepository.GetSnapshot(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if s.poiService == nil || len(snapshot.Notes) == 0 {
		return snapshot, nil
	}

	items := make([]poi.QueryItem, 0, len(snapshot.Notes))
	ids := make([]string, len(snapshot.Notes))
	for i, note := range snapshot.Notes {
		if note.IsSpent {
			continue
		}
		blinded, err := note.BlindedCommitmentID()
		if err != nil {
			return nil, err
		}
		ids[i] = hexutil.EncodeBig(blinded)
		items = append(items, poi.QueryItem{
			BlindedCommitment: ids[i],
			Kind:              note.Kind.String(),
		})
	}
	if len(items) == 0 {
		return snapshot, nil
	}

	statuses, err := s.poiService.Statuses(ctx, items)
	if err != nil {
		// cached statuses are the fallback when the aggregator is down
		log.WithError(err).Warn("balance: proof status refresh failed, serving cached statuses")
		return snapshot, nil
	}

	for i := range snapshot.Notes {
		if snapshot.Notes[i].IsSpent || ids[i] == "" {
			continue
		}
		status, ok := statuses[ids[i]]
		if !ok {
			continue
		}
		// an explicit unknown must not downgrade a definitive cached status
		if status == poi.StatusUnknown &&
			snapshot.Notes[i].ProofStatus != domain.ProofUnknown {
			continue
		}
		snapshot.Notes[i].ProofStatus = domain.ProofStatus(status)
	}

	next := &domain.WalletSnapshot{
		WalletID:       snapshot.WalletID,
		Generation:     snapshot.Generation + 1,
		ScannedToBlock: snapshot.ScannedToBlock,
		Notes:          snapshot.Notes,
		UpdatedAt:      time.Now(),
	}
	if err := s.noteRepository.PutSnapshot(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}
