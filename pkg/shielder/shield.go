// Package shielder builds and pre-validates shield transactions, the move of
// public funds into the pool. It produces the exact calldata tuple of the
// pool's shield method and simulates the call before any signature is asked
// for.
package shielder

import (
	"crypto/rand"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/veil-network/veil-wallet/pkg/keychain"
	"github.com/veil-network/veil-wallet/pkg/ledger"
	"github.com/veil-network/veil-wallet/pkg/notecrypto"
)

// maxShieldValue is the largest value a commitment can carry, the uint120
// range of the contract.
var maxShieldValue = new(big.Int).Sub(
	new(big.Int).Lsh(big.NewInt(1), 120), big.NewInt(1),
)

// ShieldRequest is one (preimage, ciphertext) pair of the shield calldata.
type ShieldRequest struct {
	Preimage   ledger.CommitmentPreimage
	Ciphertext ledger.ShieldCiphertext
}

// BuildShieldRequestOpts is the struct given to the BuildShieldRequest
// method.
type BuildShieldRequestOpts struct {
	// RecipientAddress is the shielded address the funds are sent to. It
	// may be the shielder's own.
	RecipientAddress string
	Token            ledger.TokenData
	Value            *big.Int
}

func (o BuildShieldRequestOpts) validate() error {
	if len(o.RecipientAddress) <= 0 {
		return keychain.ErrNullAddress
	}
	if o.Value == nil || o.Value.Sign() <= 0 || o.Value.Cmp(maxShieldValue) > 0 {
		return ErrNullValue
	}
	return nil
}

// BuildShieldRequest assembles a shield request for the recipient address
// with a fresh random nonce and a fresh one-shot ephemeral keypair. The
// returned ephemeral private key is the only way to later recover which
// viewing key the shield was addressed to; callers that do not need that can
// discard it.
func BuildShieldRequest(opts BuildShieldRequestOpts) (*ShieldRequest, [32]byte, error) {
	var ephemeralPriv [32]byte

	if err := opts.validate(); err != nil {
		return nil, ephemeralPriv, err
	}

	decoded, err := keychain.DecodeAddress(opts.RecipientAddress)
	if err != nil {
		return nil, ephemeralPriv, err
	}

	var random [16]byte
	if _, err := rand.Read(random[:]); err != nil {
		return nil, ephemeralPriv, err
	}

	ephemeralPriv, ephemeralPub, err := notecrypto.GenerateEphemeralKeys()
	if err != nil {
		return nil, [32]byte{}, err
	}

	sharedKey, ok := notecrypto.SharedSymmetricKey(
		ephemeralPriv, decoded.ViewingPublicKey,
	)
	if !ok {
		return nil, [32]byte{}, ErrDegenerateRecipientKey
	}

	bundle, err := notecrypto.EncryptShieldBundle(
		sharedKey, ephemeralPriv, random, decoded.ViewingPublicKey,
	)
	if err != nil {
		return nil, [32]byte{}, err
	}

	npk, err := notecrypto.NotePublicKey(decoded.MasterPublicKey, random)
	if err != nil {
		return nil, [32]byte{}, err
	}

	request := &ShieldRequest{
		Preimage: ledger.CommitmentPreimage{
			NPK:   npk,
			Token: opts.Token,
			Value: new(big.Int).Set(opts.Value),
		},
		Ciphertext: ledger.ShieldCiphertext{
			EncryptedBundle: bundle,
			ShieldKey:       ephemeralPub,
		},
	}
	return request, ephemeralPriv, nil
}

// PackShieldCall encodes the requests into the calldata of the pool's shield
// method.
func PackShieldCall(requests []*ShieldRequest) ([]byte, error) {
	if len(requests) <= 0 {
		return nil, ErrEmptyRequests
	}

	type abiToken struct {
		TokenType    uint8
		TokenAddress common.Address
		TokenSubID   *big.Int
	}
	type abiPreimage struct {
		Npk   [32]byte
		Token abiToken
		Value *big.Int
	}
	type abiCiphertext struct {
		EncryptedBundle [3][32]byte
		ShieldKey       [32]byte
	}
	type abiRequest struct {
		Preimage   abiPreimage
		Ciphertext abiCiphertext
	}

	packed := make([]abiRequest, 0, len(requests))
	for _, r := range requests {
		subID := r.Preimage.Token.SubID
		if subID == nil {
			subID = new(big.Int)
		}
		var npk [32]byte
		r.Preimage.NPK.FillBytes(npk[:])

		packed = append(packed, abiRequest{
			Preimage: abiPreimage{
				Npk: npk,
				Token: abiToken{
					TokenType:    uint8(r.Preimage.Token.Type),
					TokenAddress: r.Preimage.Token.Address,
					TokenSubID:   subID,
				},
				Value: r.Preimage.Value,
			},
			Ciphertext: abiCiphertext{
				EncryptedBundle: [3][32]byte(r.Ciphertext.EncryptedBundle),
				ShieldKey:       r.Ciphertext.ShieldKey,
			},
		})
	}
	return ledger.PoolABI.Pack("shield", packed)
}
