package keychain

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
)

const hardenedOffset = uint32(0x80000000)

const (
	// PurposeSpending is the purpose constant of the spending key derivation
	// path m/44'/1984'/0'/0'/index'.
	PurposeSpending = uint32(44)
	// PurposeViewing is the purpose constant of the viewing key derivation
	// path m/420'/1984'/0'/0'/index'.
	PurposeViewing = uint32(420)
	// CoinType is the registered coin type shared by both derivation paths.
	CoinType = uint32(1984)
)

var masterHMACKey = []byte("ed25519 seed")

// node is a single level of the hardened-only hierarchical derivation.
// Both the spending and the viewing hierarchies use the same scheme, they
// only differ in their purpose constant.
type node struct {
	key       [32]byte
	chainCode [32]byte
}

func newMasterNode(seed []byte) node {
	mac := hmac.New(sha512.New, masterHMACKey)
	mac.Write(seed)
	sum := mac.Sum(nil)

	var n node
	copy(n.key[:], sum[:32])
	copy(n.chainCode[:], sum[32:])
	return n
}

// childHardened derives the hardened child at the given index. Non-hardened
// derivation is intentionally unsupported, every path segment is hardened.
func (n node) childHardened(index uint32) node {
	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, n.key[:]...)
	data = binary.BigEndian.AppendUint32(data, index|hardenedOffset)

	mac := hmac.New(sha512.New, n.chainCode[:])
	mac.Write(data)
	sum := mac.Sum(nil)

	var child node
	copy(child.key[:], sum[:32])
	copy(child.chainCode[:], sum[32:])
	return child
}

func derivePath(seed []byte, path []uint32) node {
	n := newMasterNode(seed)
	for _, index := range path {
		n = n.childHardened(index)
	}
	return n
}

func spendingPath(account uint32) []uint32 {
	return []uint32{PurposeSpending, CoinType, 0, 0, account}
}

func viewingPath(account uint32) []uint32 {
	return []uint32{PurposeViewing, CoinType, 0, 0, account}
}
