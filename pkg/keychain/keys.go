package keychain

import (
	"crypto/sha512"
	"math/big"
	"strings"

	"filippo.io/edwards25519"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vulpemventures/go-bip39"
)

// WalletKeys holds the full key hierarchy of one shielded account. Instances
// live in memory only while the wallet is unlocked and must be zeroed with
// Zero when the wallet is locked.
type WalletKeys struct {
	SpendingPrivateKey [32]byte
	SpendingPublicKey  *babyjub.Point
	ViewingPrivateKey  [32]byte
	ViewingPublicKey   [32]byte
	NullifyingKey      *big.Int
	MasterPublicKey    *big.Int
}

// DeriveKeysOpts is the struct given to the DeriveKeys method
type DeriveKeysOpts struct {
	Mnemonic     string
	AccountIndex uint32
}

func (o DeriveKeysOpts) validate() error {
	if len(strings.TrimSpace(o.Mnemonic)) <= 0 {
		return ErrNullMnemonic
	}
	if !bip39.IsMnemonicValid(o.Mnemonic) {
		return ErrInvalidMnemonic
	}
	return nil
}

// DeriveKeys derives the spending, viewing, nullifying and master keys of the
// account at the given index, deterministically from the mnemonic.
//
// Two independent hardened hierarchies are walked down to the same account
// index: the spending one yields a Baby Jubjub scalar, the viewing one yields
// an Ed25519-style private key. The nullifying key and the master public key
// are bound together with Poseidon so that the same relation can be proven
// inside a circuit:
//
//	nullifyingKey   = Poseidon(viewingPrivateKey)
//	masterPublicKey = Poseidon(spendingPub.X, spendingPub.Y, nullifyingKey)
func DeriveKeys(opts DeriveKeysOpts) (*WalletKeys, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(opts.Mnemonic, "")

	spendNode := derivePath(seed, spendingPath(opts.AccountIndex))
	viewNode := derivePath(seed, viewingPath(opts.AccountIndex))

	keys := &WalletKeys{
		SpendingPrivateKey: spendNode.key,
		ViewingPrivateKey:  viewNode.key,
	}

	keys.SpendingPublicKey = spendingPublicKey(spendNode.key)

	viewingPub, err := viewingPublicKey(viewNode.key)
	if err != nil {
		return nil, err
	}
	keys.ViewingPublicKey = viewingPub

	nullifyingKey, err := poseidon.Hash([]*big.Int{
		bytesToField(viewNode.key[:]),
	})
	if err != nil {
		return nil, err
	}
	keys.NullifyingKey = nullifyingKey

	masterPublicKey, err := poseidon.Hash([]*big.Int{
		keys.SpendingPublicKey.X,
		keys.SpendingPublicKey.Y,
		nullifyingKey,
	})
	if err != nil {
		return nil, err
	}
	keys.MasterPublicKey = masterPublicKey

	return keys, nil
}

// Zero wipes all private material. The struct must not be used afterwards.
func (k *WalletKeys) Zero() {
	for i := range k.SpendingPrivateKey {
		k.SpendingPrivateKey[i] = 0
	}
	for i := range k.ViewingPrivateKey {
		k.ViewingPrivateKey[i] = 0
	}
	if k.NullifyingKey != nil {
		k.NullifyingKey.SetInt64(0)
	}
	k.SpendingPublicKey = nil
	k.MasterPublicKey = nil
	k.ViewingPublicKey = [32]byte{}
}

func spendingPublicKey(priv [32]byte) *babyjub.Point {
	scalar := new(big.Int).Mod(
		new(big.Int).SetBytes(priv[:]),
		babyjub.SubOrder,
	)
	return babyjub.NewPoint().Mul(scalar, babyjub.B8)
}

func viewingPublicKey(priv [32]byte) ([32]byte, error) {
	var pub [32]byte

	digest := sha512.Sum512(priv[:])
	scalar, err := edwards25519.NewScalar().SetBytesWithClamping(digest[:32])
	if err != nil {
		return pub, err
	}
	point := (&edwards25519.Point{}).ScalarBaseMult(scalar)
	copy(pub[:], point.Bytes())
	return pub, nil
}

// bytesToField interprets buf as a big-endian integer reduced into the
// Poseidon field.
func bytesToField(buf []byte) *big.Int {
	return new(big.Int).Mod(new(big.Int).SetBytes(buf), constants.Q)
}
