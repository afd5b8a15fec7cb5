package application

import (
	"context"
	"math/big"
	"runtime"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/veil-network/veil-wallet/internal/core/domain"
	"github.com/veil-network/veil-wallet/pkg/keychain"
	"github.com/veil-network/veil-wallet/pkg/ledger"
	"github.com/veil-network/veil-wallet/pkg/notecrypto"
)

// ScannerService reconciles a wallet against the on-ledger commitment and
// nullifier history. A scan trial-decrypts every new commitment under the
// wallet's viewing key, recomputes spent flags from the published nullifier
// set and commits the result as a new snapshot generation.
type ScannerService interface {
	// Scan brings the wallet's snapshot up to the current chain head. The
	// wallet must be unlocked. Scanning is idempotent: rescanning the same
	// range converges to the same snapshot content.
	Scan(ctx context.Context, walletID uuid.UUID) (*domain.WalletSnapshot, error)
}

// ScannerServiceOpts is the struct given to the NewScannerService method.
type ScannerServiceOpts struct {
	LedgerService  ledger.Service
	WalletService  WalletService
	NoteRepository domain.NoteRepository
	// DeployBlock is the block the pool contract was deployed at, where the
	// first scan of a wallet starts.
	DeployBlock uint64
	// Workers bounds the trial-decryption concurrency, defaulting to the
	// number of CPUs.
	Workers int
}

func (o ScannerServiceOpts) validate() error {
	if o.LedgerService == nil {
		return ErrNullLedgerService
	}
	if o.WalletService == nil {
		return ErrNullWalletService
	}
	if o.NoteRepository == nil {
		return ErrNullNoteRepository
	}
	return nil
}

type scannerService struct {
	ledgerService  ledger.Service
	walletService  WalletService
	noteRepository domain.NoteRepository
	deployBlock    uint64
	workers        int
}

// NewScannerService returns a new ScannerService from the given opts.
func NewScannerService(opts ScannerServiceOpts) (ScannerService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &scannerService{
		ledgerService:  opts.LedgerService,
		walletService:  opts.WalletService,
		noteRepository: opts.NoteRepository,
		deployBlock:    opts.DeployBlock,
		workers:        workers,
	}, nil
}

func (s *scannerService) Scan(
	ctx context.Context, walletID uuid.UUID,
) (*domain.WalletSnapshot, error) {
	keys, err := s.walletService.Keys(walletID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.noteRepository.GetSnapshot(ctx, walletID)
	if err != nil && err != domain.ErrSnapshotNotFound {
		return nil, err
	}
	if snapshot == nil {
		snapshot = &domain.WalletSnapshot{WalletID: walletID}
	}

	fromBlock := s.deployBlock
	if snapshot.ScannedToBlock > 0 {
		fromBlock = snapshot.ScannedToBlock + 1
	}

	head, err := s.ledgerService.HeadBlock(ctx)
	if err != nil {
		return nil, err
	}
	if fromBlock > head {
		return snapshot, nil
	}

	records, failedCommitments, err := s.ledgerService.Commitments(
		ctx, fromBlock, head,
	)
	if err != nil {
		return nil, err
	}

	registry := tokenRegistry(snapshot.Notes, records)

	found, err := s.trialDecrypt(ctx, keys, records, registry)
	if err != nil {
		return nil, err
	}

	// merge keyed by leaf position, so rescanning an already covered range
	// cannot duplicate notes
	merged := make(map[uint64]domain.DecryptedNote, len(snapshot.Notes)+len(found))
	for _, note := range snapshot.Notes {
		merged[noteKey(note.TreeNumber, note.LeafPosition)] = note
	}
	for _, note := range found {
		merged[noteKey(note.TreeNumber, note.LeafPosition)] = note
	}

	nullifiers, failedNullifiers, err := s.ledgerService.Nullifiers(
		ctx, fromBlock, head,
	)
	if err != nil {
		return nil, err
	}

	// spent flags only ever turn on; a nullifier observed once keeps the
	// note spent in every later generation
	published := make(map[[32]byte]struct{}, len(nullifiers))
	for _, n := range nullifiers {
		published[n.Nullifier] = struct{}{}
	}
	for key, note := range merged {
		if note.IsSpent {
			continue
		}
		nullifier, err := note.Nullifier(keys.NullifyingKey)
		if err != nil {
			return nil, err
		}
		var buf [32]byte
		nullifier.FillBytes(buf[:])
		if _, ok := published[buf]; ok {
			note.IsSpent = true
			merged[key] = note
		}
	}

	notes := make([]domain.DecryptedNote, 0, len(merged))
	for _, note := range merged {
		notes = append(notes, note)
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].TreeNumber != notes[j].TreeNumber {
			return notes[i].TreeNumber < notes[j].TreeNumber
		}
		return notes[i].LeafPosition < notes[j].LeafPosition
	})

	// a failed chunk leaves a hole; the snapshot only advances to right
	// before the hole so the next scan retries it
	scannedTo := head
	for _, chunk := range failedCommitments {
		if chunk.FromBlock <= scannedTo {
			scannedTo = chunk.FromBlock - 1
		}
	}
	for _, chunk := range failedNullifiers {
		if chunk.FromBlock <= scannedTo {
			scannedTo = chunk.FromBlock - 1
		}
	}
	// even a range holed from its first chunk commits what was found, the
	// merge by leaf position keeps the retry idempotent
	if scannedTo < fromBlock {
		scannedTo = snapshot.ScannedToBlock
	}

	next := &domain.WalletSnapshot{
		WalletID:       walletID,
		Generation:     snapshot.Generation + 1,
		ScannedToBlock: scannedTo,
		Notes:          notes,
		UpdatedAt:      time.Now(),
	}
	if err := s.noteRepository.PutSnapshot(ctx, next); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"wallet":     walletID,
		"generation": next.Generation,
		"to_block":   scannedTo,
		"notes":      len(notes),
	}).Info("scan committed")
	return next, nil
}

// trialDecrypt opens every record under the wallet keys with a bounded worker
// pool. Results keep the input order.
func (s *scannerService) trialDecrypt(
	ctx context.Context,
	keys *keychain.WalletKeys,
	records []ledger.CommitmentRecord,
	registry map[string]ledger.TokenData,
) ([]domain.DecryptedNote, error) {
	results := make([]*domain.DecryptedNote, len(records))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range records {
		i := i
		g.Go(func() error {
			results[i] = s.tryOpen(keys, records[i], registry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := make([]domain.DecryptedNote, 0)
	for _, note := range results {
		if note != nil {
			found = append(found, *note)
		}
	}
	return found, nil
}

func (s *scannerService) tryOpen(
	keys *keychain.WalletKeys,
	record ledger.CommitmentRecord,
	registry map[string]ledger.TokenData,
) *domain.DecryptedNote {
	switch record.Kind {
	case ledger.KindShield:
		return s.tryOpenShield(keys, record)
	case ledger.KindTransact:
		return s.tryOpenTransact(keys, record, registry)
	}
	return nil
}

// tryOpenShield claims a shield commitment: recover the random nonce through
// the shield key, then check the clear note public key binds to this wallet's
// master public key.
func (s *scannerService) tryOpenShield(
	keys *keychain.WalletKeys, record ledger.CommitmentRecord,
) *domain.DecryptedNote {
	if record.Shield == nil || record.Preimage == nil {
		return nil
	}

	sharedKey, ok := notecrypto.SharedSymmetricKey(
		keys.ViewingPrivateKey, record.Shield.ShieldKey,
	)
	if !ok {
		return nil
	}
	random, ok := notecrypto.DecryptShieldBundle(
		sharedKey, record.Shield.EncryptedBundle,
	)
	if !ok {
		return nil
	}

	npk, err := notecrypto.NotePublicKey(keys.MasterPublicKey, random)
	if err != nil || npk.Cmp(record.Preimage.NPK) != 0 {
		return nil
	}

	return &domain.DecryptedNote{
		Kind:           record.Kind,
		CommitmentHash: record.Hash,
		Token:          record.Preimage.Token,
		Value:          record.Preimage.Value,
		NotePublicKey:  npk,
		Random:         random,
		TreeNumber:     record.TreeNumber,
		LeafPosition:   record.LeafPosition(),
		BlockNumber:    record.BlockNumber,
		TxHash:         record.TxHash,
		ProofStatus:    domain.ProofUnknown,
	}
}

// tryOpenTransact claims a transact commitment, first with the receiver role
// key, then with the sender role key. A sender-side hit marks the note as
// sent so the balance views can tell change apart from received funds.
func (s *scannerService) tryOpenTransact(
	keys *keychain.WalletKeys,
	record ledger.CommitmentRecord,
	registry map[string]ledger.TokenData,
) *domain.DecryptedNote {
	if record.Transact == nil {
		return nil
	}

	if key, ok := notecrypto.SharedSymmetricKey(
		keys.ViewingPrivateKey, record.Transact.BlindedSenderViewingKey,
	); ok {
		if fields, ok := notecrypto.DecryptNote(key, &record.Transact.Ciphertext); ok {
			if note := s.noteFromFields(keys, record, fields, false, registry); note != nil {
				return note
			}
		}
	}

	if key, ok := notecrypto.SharedSymmetricKey(
		keys.ViewingPrivateKey, record.Transact.BlindedReceiverViewingKey,
	); ok {
		if fields, ok := notecrypto.DecryptNote(key, &record.Transact.Ciphertext); ok {
			return s.noteFromFields(keys, record, fields, true, registry)
		}
	}
	return nil
}

// noteFromFields authenticates decrypted note fields against the on-ledger
// commitment hash. An AEAD hit alone is not enough: the recomputed Poseidon
// commitment must match the ledger, and a received note must be addressed to
// this wallet's master public key.
func (s *scannerService) noteFromFields(
	keys *keychain.WalletKeys,
	record ledger.CommitmentRecord,
	fields *notecrypto.NoteFields,
	sent bool,
	registry map[string]ledger.TokenData,
) *domain.DecryptedNote {
	if !sent && fields.MasterPublicKey.Cmp(keys.MasterPublicKey) != 0 {
		return nil
	}

	npk, err := notecrypto.NotePublicKey(fields.MasterPublicKey, fields.Random)
	if err != nil {
		return nil
	}
	hash, err := notecrypto.CommitmentHash(npk, fields.TokenHash, fields.Value)
	if err != nil || hash.Cmp(record.Hash) != 0 {
		return nil
	}

	token, ok := tokenFromHash(fields.TokenHash, registry)
	if !ok {
		log.Warnf(
			"scanner: dropping note at position %d, token hash %s not resolvable",
			record.LeafPosition(), hexutil.EncodeBig(fields.TokenHash),
		)
		return nil
	}

	return &domain.DecryptedNote{
		Kind:           record.Kind,
		CommitmentHash: record.Hash,
		Token:          token,
		Value:          fields.Value,
		NotePublicKey:  npk,
		Random:         fields.Random,
		TreeNumber:     record.TreeNumber,
		LeafPosition:   record.LeafPosition(),
		BlockNumber:    record.BlockNumber,
		TxHash:         record.TxHash,
		IsSentNote:     sent,
		ProofStatus:    domain.ProofUnknown,
	}
}

// tokenRegistry collects every token whose full data is known, keyed by token
// hash: the tokens of the already decrypted notes plus every shield preimage
// of the batch, foreign shields included. Transact ciphertexts only carry the
// token hash, so NFT-style tokens are only resolvable through this registry.
func tokenRegistry(
	notes []domain.DecryptedNote, records []ledger.CommitmentRecord,
) map[string]ledger.TokenData {
	registry := make(map[string]ledger.TokenData)
	for _, note := range notes {
		registry[note.Token.Hash().String()] = note.Token
	}
	for _, record := range records {
		if record.Kind == ledger.KindShield && record.Preimage != nil {
			registry[record.Preimage.Token.Hash().String()] = record.Preimage.Token
		}
	}
	return registry
}

// tokenFromHash inverts a token hash. Plain ERC20 hashes are the address
// itself; everything else needs a registry hit.
func tokenFromHash(
	tokenHash *big.Int, registry map[string]ledger.TokenData,
) (ledger.TokenData, bool) {
	if token, ok := registry[tokenHash.String()]; ok {
		return token, true
	}
	if tokenHash.BitLen() <= 160 {
		return ledger.TokenData{
			Type:    ledger.TokenERC20,
			Address: common.BigToAddress(tokenHash),
		}, true
	}
	return ledger.TokenData{}, false
}

func noteKey(treeNumber uint32, leafPosition uint64) uint64 {
	return uint64(treeNumber)<<48 | leafPosition
}
