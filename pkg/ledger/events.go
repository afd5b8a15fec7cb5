package ledger

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/veil-network/veil-wallet/pkg/notecrypto"
)

// poolABIJSON is the subset of the pool contract surface the wallet consumes:
// the two commitment batch events, the nullifier publication event, the two
// read methods gating shields, and the shield submission call.
const poolABIJSON = `[
  {"type":"event","name":"Shield","inputs":[
    {"name":"treeNumber","type":"uint256"},
    {"name":"startPosition","type":"uint256"},
    {"name":"commitments","type":"tuple[]","components":[
      {"name":"npk","type":"bytes32"},
      {"name":"token","type":"tuple","components":[
        {"name":"tokenType","type":"uint8"},
        {"name":"tokenAddress","type":"address"},
        {"name":"tokenSubID","type":"uint256"}]},
      {"name":"value","type":"uint120"}]},
    {"name":"shieldCiphertexts","type":"tuple[]","components":[
      {"name":"encryptedBundle","type":"bytes32[3]"},
      {"name":"shieldKey","type":"bytes32"}]},
    {"name":"fees","type":"uint256[]"}]},
  {"type":"event","name":"Transact","inputs":[
    {"name":"treeNumber","type":"uint256"},
    {"name":"startPosition","type":"uint256"},
    {"name":"hash","type":"bytes32[]"},
    {"name":"ciphertext","type":"tuple[]","components":[
      {"name":"ciphertext","type":"bytes32[5]"},
      {"name":"blindedSenderViewingKey","type":"bytes32"},
      {"name":"blindedReceiverViewingKey","type":"bytes32"},
      {"name":"annotationData","type":"bytes"},
      {"name":"memo","type":"bytes"}]}]},
  {"type":"event","name":"Nullified","inputs":[
    {"name":"treeNumber","type":"uint16"},
    {"name":"nullifier","type":"bytes32[]"}]},
  {"type":"function","name":"merkleRoot","stateMutability":"view",
    "inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"tokenBlocklist","stateMutability":"view",
    "inputs":[{"name":"","type":"address"}],
    "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"shield","stateMutability":"payable",
    "inputs":[{"name":"_shieldRequests","type":"tuple[]","components":[
      {"name":"preimage","type":"tuple","components":[
        {"name":"npk","type":"bytes32"},
        {"name":"token","type":"tuple","components":[
          {"name":"tokenType","type":"uint8"},
          {"name":"tokenAddress","type":"address"},
          {"name":"tokenSubID","type":"uint256"}]},
        {"name":"value","type":"uint120"}]},
      {"name":"ciphertext","type":"tuple","components":[
        {"name":"encryptedBundle","type":"bytes32[3]"},
        {"name":"shieldKey","type":"bytes32"}]}]}],
    "outputs":[]}
]`

// PoolABI is the parsed contract ABI, shared with the shield builder.
var PoolABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(poolABIJSON))
	if err != nil {
		panic(err)
	}
	PoolABI = parsed
}

// TokenType discriminates the asset families supported by the pool.
type TokenType uint8

const (
	// TokenERC20 ...
	TokenERC20 TokenType = iota
	// TokenERC721 ...
	TokenERC721
	// TokenERC1155 ...
	TokenERC1155
)

// TokenData identifies one asset as the pool contract sees it.
type TokenData struct {
	Type    TokenType
	Address common.Address
	SubID   *big.Int
}

// Hash returns the field element that represents the token inside
// commitments. Plain ERC20 tokens hash to their address so the token can be
// recovered from the hash alone; NFT-style tokens fall back to a keccak of
// the full token data reduced into the field.
func (t TokenData) Hash() *big.Int {
	if t.Type == TokenERC20 && (t.SubID == nil || t.SubID.Sign() == 0) {
		return new(big.Int).SetBytes(t.Address.Bytes())
	}

	subID := t.SubID
	if subID == nil {
		subID = new(big.Int)
	}
	buf := make([]byte, 0, 96)
	buf = append(buf, common.LeftPadBytes([]byte{byte(t.Type)}, 32)...)
	buf = append(buf, common.LeftPadBytes(t.Address.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(subID.Bytes(), 32)...)
	return notecrypto.ReduceToField(crypto.Keccak256(buf))
}

// CommitmentKind discriminates the two on-ledger commitment variants.
type CommitmentKind int

const (
	// KindShield is a commitment created by moving public funds into the
	// pool: preimage in the clear, random nonce encrypted.
	KindShield CommitmentKind = iota
	// KindTransact is a commitment created by a private transfer: payload
	// fully encrypted.
	KindTransact
)

func (k CommitmentKind) String() string {
	if k == KindShield {
		return "shield"
	}
	return "transact"
}

// CommitmentPreimage is the clear part of a shield commitment.
type CommitmentPreimage struct {
	NPK   *big.Int
	Token TokenData
	Value *big.Int
}

// ShieldCiphertext is the confidential part of a shield commitment.
type ShieldCiphertext struct {
	EncryptedBundle notecrypto.ShieldBundle
	ShieldKey       [32]byte
}

// TransactCiphertext is the confidential payload of a transact commitment.
type TransactCiphertext struct {
	Ciphertext                notecrypto.Ciphertext
	BlindedSenderViewingKey   [32]byte
	BlindedReceiverViewingKey [32]byte
	Memo                      []byte
}

// CommitmentRecord is one flat per-commitment record unpacked from a batch
// event, the unit the scanner trial-decrypts.
type CommitmentRecord struct {
	Kind           CommitmentKind
	Hash           *big.Int
	TreeNumber     uint32
	StartPosition  uint64
	PositionOffset uint32
	BlockNumber    uint64
	TxHash         common.Hash
	LogIndex       uint

	// shield only
	Preimage *CommitmentPreimage
	Shield   *ShieldCiphertext

	// transact only
	Transact *TransactCiphertext
}

// LeafPosition is the global accumulator position of the commitment.
func (r CommitmentRecord) LeafPosition() uint64 {
	return r.StartPosition + uint64(r.PositionOffset)
}

// NullifierRecord is one published nullifier.
type NullifierRecord struct {
	TreeNumber  uint32
	Nullifier   [32]byte
	BlockNumber uint64
}

type shieldEvent struct {
	TreeNumber    *big.Int
	StartPosition *big.Int
	Commitments   []struct {
		Npk   [32]byte
		Token struct {
			TokenType    uint8
			TokenAddress common.Address
			TokenSubID   *big.Int
		}
		Value *big.Int
	}
	ShieldCiphertexts []struct {
		EncryptedBundle [3][32]byte
		ShieldKey       [32]byte
	}
	Fees []*big.Int
}

type transactEvent struct {
	TreeNumber    *big.Int
	StartPosition *big.Int
	Hash          [][32]byte
	Ciphertext    []struct {
		Ciphertext                [5][32]byte
		BlindedSenderViewingKey   [32]byte
		BlindedReceiverViewingKey [32]byte
		AnnotationData            []byte
		Memo                      []byte
	}
}

type nullifiedEvent struct {
	TreeNumber uint16
	Nullifier  [][32]byte
}

// parseCommitmentLog unpacks a Shield or Transact log into flat commitment
// records. Unknown topics yield (nil, nil) so foreign logs are skipped, not
// failed on.
func parseCommitmentLog(log types.Log) ([]CommitmentRecord, error) {
	if len(log.Topics) == 0 {
		return nil, nil
	}

	switch log.Topics[0] {
	case PoolABI.Events["Shield"].ID:
		var ev shieldEvent
		if err := PoolABI.UnpackIntoInterface(&ev, "Shield", log.Data); err != nil {
			return nil, err
		}
		return shieldRecords(ev, log)

	case PoolABI.Events["Transact"].ID:
		var ev transactEvent
		if err := PoolABI.UnpackIntoInterface(&ev, "Transact", log.Data); err != nil {
			return nil, err
		}
		return transactRecords(ev, log), nil
	}
	return nil, nil
}

func shieldRecords(ev shieldEvent, log types.Log) ([]CommitmentRecord, error) {
	records := make([]CommitmentRecord, 0, len(ev.Commitments))
	for i, c := range ev.Commitments {
		preimage := &CommitmentPreimage{
			NPK: new(big.Int).SetBytes(c.Npk[:]),
			Token: TokenData{
				Type:    TokenType(c.Token.TokenType),
				Address: c.Token.TokenAddress,
				SubID:   c.Token.TokenSubID,
			},
			Value: c.Value,
		}
		hash, err := notecrypto.CommitmentHash(
			preimage.NPK, preimage.Token.Hash(), preimage.Value,
		)
		if err != nil {
			return nil, err
		}

		record := CommitmentRecord{
			Kind:           KindShield,
			Hash:           hash,
			TreeNumber:     uint32(ev.TreeNumber.Uint64()),
			StartPosition:  ev.StartPosition.Uint64(),
			PositionOffset: uint32(i),
			BlockNumber:    log.BlockNumber,
			TxHash:         log.TxHash,
			LogIndex:       log.Index,
			Preimage:       preimage,
		}
		if i < len(ev.ShieldCiphertexts) {
			sc := ev.ShieldCiphertexts[i]
			record.Shield = &ShieldCiphertext{
				EncryptedBundle: sc.EncryptedBundle,
				ShieldKey:       sc.ShieldKey,
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func transactRecords(ev transactEvent, log types.Log) []CommitmentRecord {
	records := make([]CommitmentRecord, 0, len(ev.Hash))
	for i, hash := range ev.Hash {
		record := CommitmentRecord{
			Kind:           KindTransact,
			Hash:           new(big.Int).SetBytes(hash[:]),
			TreeNumber:     uint32(ev.TreeNumber.Uint64()),
			StartPosition:  ev.StartPosition.Uint64(),
			PositionOffset: uint32(i),
			BlockNumber:    log.BlockNumber,
			TxHash:         log.TxHash,
			LogIndex:       log.Index,
		}
		if i < len(ev.Ciphertext) {
			ct := ev.Ciphertext[i]
			transact := &TransactCiphertext{
				BlindedSenderViewingKey:   ct.BlindedSenderViewingKey,
				BlindedReceiverViewingKey: ct.BlindedReceiverViewingKey,
				Memo:                      ct.Memo,
			}
			copy(transact.Ciphertext.IV[:], ct.Ciphertext[0][:16])
			copy(transact.Ciphertext.Tag[:], ct.Ciphertext[0][16:])
			for b := 0; b < notecrypto.PlaintextBlocks; b++ {
				transact.Ciphertext.Blocks[b] = ct.Ciphertext[b+1]
			}
			record.Transact = transact
		}
		records = append(records, record)
	}
	return records
}

func parseNullifierLog(log types.Log) ([]NullifierRecord, error) {
	if len(log.Topics) == 0 || log.Topics[0] != PoolABI.Events["Nullified"].ID {
		return nil, nil
	}

	var ev nullifiedEvent
	if err := PoolABI.UnpackIntoInterface(&ev, "Nullified", log.Data); err != nil {
		return nil, err
	}

	records := make([]NullifierRecord, 0, len(ev.Nullifier))
	for _, n := range ev.Nullifier {
		records = append(records, NullifierRecord{
			TreeNumber:  uint32(ev.TreeNumber),
			Nullifier:   n,
			BlockNumber: log.BlockNumber,
		})
	}
	return records, nil
}
