package application_test

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veil-network/veil-wallet/internal/core/application"
	"github.com/veil-network/veil-wallet/internal/core/domain"
	"github.com/veil-network/veil-wallet/pkg/keychain"
	"github.com/veil-network/veil-wallet/pkg/ledger"
	"github.com/veil-network/veil-wallet/pkg/notecrypto"
)

var testMnemonic = "test test test test test test test test test test test junk"

func testKeys(t *testing.T, accountIndex uint32) *keychain.WalletKeys {
	keys, err := keychain.DeriveKeys(keychain.DeriveKeysOpts{
		Mnemonic:     testMnemonic,
		AccountIndex: accountIndex,
	})
	require.NoError(t, err)
	return keys
}

// fakeWalletService serves pre-derived keys without the unlock ceremony.
type fakeWalletService struct {
	application.WalletService
	keys map[uuid.UUID]*keychain.WalletKeys
}

func newFakeWalletService() *fakeWalletService {
	return &fakeWalletService{keys: make(map[uuid.UUID]*keychain.WalletKeys)}
}

func (s *fakeWalletService) add(keys *keychain.WalletKeys) uuid.UUID {
	id := uuid.New()
	s.keys[id] = keys
	return id
}

func (s *fakeWalletService) Keys(walletID uuid.UUID) (*keychain.WalletKeys, error) {
	keys, ok := s.keys[walletID]
	if !ok {
		return nil, domain.ErrWalletMustBeUnlocked
	}
	return keys, nil
}

// fakeLedgerService serves canned records filtered by block range.
type fakeLedgerService struct {
	head         uint64
	commitments  []ledger.CommitmentRecord
	nullifiers   []ledger.NullifierRecord
	failedChunks []ledger.ChunkError
	blocked      map[common.Address]bool
	root         string
}

func (s *fakeLedgerService) Commitments(
	_ context.Context, fromBlock, toBlock uint64,
) ([]ledger.CommitmentRecord, []ledger.ChunkError, error) {
	records := make([]ledger.CommitmentRecord, 0)
	for _, r := range s.commitments {
		if r.BlockNumber >= fromBlock && r.BlockNumber <= toBlock {
			records = append(records, r)
		}
	}
	return records, s.failedChunks, nil
}

func (s *fakeLedgerService) Nullifiers(
	_ context.Context, fromBlock, toBlock uint64,
) ([]ledger.NullifierRecord, []ledger.ChunkError, error) {
	records := make([]ledger.NullifierRecord, 0)
	for _, r := range s.nullifiers {
		if r.BlockNumber >= fromBlock && r.BlockNumber <= toBlock {
			records = append(records, r)
		}
	}
	return records, nil, nil
}

func (s *fakeLedgerService) HeadBlock(_ context.Context) (uint64, error) {
	return s.head, nil
}

func (s *fakeLedgerService) MerkleRoot(_ context.Context) (string, error) {
	return s.root, nil
}

func (s *fakeLedgerService) TokenBlocked(
	_ context.Context, token common.Address,
) (bool, error) {
	return s.blocked[token], nil
}

// inMemoryNoteRepository mirrors the badger implementation's generation
// semantics.
type inMemoryNoteRepository struct {
	lock      sync.Mutex
	snapshots map[uuid.UUID]*domain.WalletSnapshot
}

func newInMemoryNoteRepository() *inMemoryNoteRepository {
	return &inMemoryNoteRepository{
		snapshots: make(map[uuid.UUID]*domain.WalletSnapshot),
	}
}

func (r *inMemoryNoteRepository) GetSnapshot(
	_ context.Context, walletID uuid.UUID,
) (*domain.WalletSnapshot, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	snapshot, ok := r.snapshots[walletID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (r *inMemoryNoteRepository) PutSnapshot(
	_ context.Context, snapshot *domain.WalletSnapshot,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if stored, ok := r.snapshots[snapshot.WalletID]; ok &&
		stored.Generation >= snapshot.Generation {
		return domain.ErrStaleSnapshot
	}
	r.snapshots[snapshot.WalletID] = snapshot
	return nil
}

func (r *inMemoryNoteRepository) DeleteSnapshot(
	_ context.Context, walletID uuid.UUID,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.snapshots, walletID)
	return nil
}

type inMemoryWalletRepository struct {
	lock    sync.Mutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepository() *inMemoryWalletRepository {
	return &inMemoryWalletRepository{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepository) GetWallet(
	_ context.Context, id uuid.UUID,
) (*domain.Wallet, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	wallet, ok := r.wallets[id]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return wallet, nil
}

func (r *inMemoryWalletRepository) AddWallet(
	_ context.Context, wallet *domain.Wallet,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.wallets[wallet.ID] = wallet
	return nil
}

func (r *inMemoryWalletRepository) ListWallets(
	_ context.Context,
) ([]domain.Wallet, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	wallets := make([]domain.Wallet, 0, len(r.wallets))
	for _, w := range r.wallets {
		wallets = append(wallets, *w)
	}
	return wallets, nil
}

// forgeShieldRecord builds an on-ledger shield commitment addressed to the
// given keys, the way a shielding counterparty would.
func forgeShieldRecord(
	t *testing.T,
	recipient *keychain.WalletKeys,
	token ledger.TokenData,
	value int64,
	blockNumber, startPosition uint64,
) ledger.CommitmentRecord {
	var random [16]byte
	random[0] = byte(startPosition + 1)
	random[15] = byte(blockNumber)

	ephPriv, ephPub, err := notecrypto.GenerateEphemeralKeys()
	require.NoError(t, err)

	sharedKey, ok := notecrypto.SharedSymmetricKey(
		ephPriv, recipient.ViewingPublicKey,
	)
	require.True(t, ok)

	bundle, err := notecrypto.EncryptShieldBundle(
		sharedKey, ephPriv, random, recipient.ViewingPublicKey,
	)
	require.NoError(t, err)

	npk, err := notecrypto.NotePublicKey(recipient.MasterPublicKey, random)
	require.NoError(t, err)

	hash, err := notecrypto.CommitmentHash(npk, token.Hash(), big.NewInt(value))
	require.NoError(t, err)

	return ledger.CommitmentRecord{
		Kind:          ledger.KindShield,
		Hash:          hash,
		StartPosition: startPosition,
		BlockNumber:   blockNumber,
		Preimage: &ledger.CommitmentPreimage{
			NPK:   npk,
			Token: token,
			Value: big.NewInt(value),
		},
		Shield: &ledger.ShieldCiphertext{
			EncryptedBundle: bundle,
			ShieldKey:       ephPub,
		},
	}
}

// forgeTransactRecord builds a transact commitment. The note is addressed to
// recipientMPK; the ciphertext key is planted behind the sender-role blinded
// key when asSender is false and behind the receiver-role one when true, so
// tests can exercise both decryption paths.
func forgeTransactRecord(
	t *testing.T,
	wallet *keychain.WalletKeys,
	recipientMPK *big.Int,
	token ledger.TokenData,
	value int64,
	blockNumber, startPosition uint64,
	asSender bool,
) ledger.CommitmentRecord {
	var random [16]byte
	random[7] = byte(startPosition + 3)

	ephPriv, ephPub, err := notecrypto.GenerateEphemeralKeys()
	require.NoError(t, err)

	key, ok := notecrypto.SharedSymmetricKey(ephPriv, wallet.ViewingPublicKey)
	require.True(t, ok)

	fields := notecrypto.NoteFields{
		MasterPublicKey: recipientMPK,
		TokenHash:       token.Hash(),
		Random:          random,
		Value:           big.NewInt(value),
	}
	ct, err := notecrypto.EncryptNote(key, fields)
	require.NoError(t, err)

	npk, err := notecrypto.NotePublicKey(recipientMPK, random)
	require.NoError(t, err)
	hash, err := notecrypto.CommitmentHash(npk, token.Hash(), big.NewInt(value))
	require.NoError(t, err)

	transact := &ledger.TransactCiphertext{Ciphertext: *ct}
	if asSender {
		transact.BlindedReceiverViewingKey = ephPub
	} else {
		transact.BlindedSenderViewingKey = ephPub
	}

	return ledger.CommitmentRecord{
		Kind:          ledger.KindTransact,
		Hash:          hash,
		StartPosition: startPosition,
		BlockNumber:   blockNumber,
		Transact:      transact,
	}
}

func nullifierFor(
	t *testing.T, keys *keychain.WalletKeys, leafPosition, blockNumber uint64,
) ledger.NullifierRecord {
	nullifier, err := notecrypto.Nullifier(keys.NullifyingKey, leafPosition)
	require.NoError(t, err)

	var buf [32]byte
	nullifier.FillBytes(buf[:])
	return ledger.NullifierRecord{Nullifier: buf, BlockNumber: blockNumber}
}
