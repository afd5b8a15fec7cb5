package keychain

import (
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	// AddressHRP is the human readable part of every shielded address.
	AddressHRP = "veil"
	// AddressVersion is the current version byte of the address payload.
	AddressVersion = byte(0x01)

	addressPayloadSize = 1 + 32 + 8 + 32
)

// chainMask is XORed over the 8-byte chain identifier before encoding. It
// obfuscates the otherwise guessable chain bytes so that two addresses for
// different chains do not share a long common substring.
var chainMask = [8]byte{'v', 'e', 'i', 'l', 'p', 'o', 'o', 'l'}

// allChainsSentinel is the pre-mask value reserved for addresses valid on any
// chain. It is not a legal concrete chain identifier.
var allChainsSentinel = [8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Chain identifies the ledger an address is bound to. Type discriminates the
// ledger family, ID is the chain id within it.
type Chain struct {
	Type uint8
	ID   uint64
}

func (c Chain) bytes() [8]byte {
	var buf [8]byte
	buf[0] = c.Type
	id := c.ID
	for i := 7; i > 0; i-- {
		buf[i] = byte(id)
		id >>= 8
	}
	return buf
}

func chainFromBytes(buf [8]byte) *Chain {
	if buf == allChainsSentinel {
		return nil
	}
	id := uint64(0)
	for i := 1; i < 8; i++ {
		id = id<<8 | uint64(buf[i])
	}
	return &Chain{Type: buf[0], ID: id}
}

// EncodeAddressOpts is the struct given to the EncodeAddress method. A nil
// Chain encodes the all-chains sentinel.
type EncodeAddressOpts struct {
	MasterPublicKey  *big.Int
	ViewingPublicKey [32]byte
	Chain            *Chain
}

func (o EncodeAddressOpts) validate() error {
	if o.MasterPublicKey == nil || o.MasterPublicKey.Sign() < 0 ||
		o.MasterPublicKey.BitLen() > 256 {
		return ErrMalformedAddress
	}
	return nil
}

// EncodeAddress encodes (masterPublicKey, viewingPublicKey, chain) into the
// bech32m shielded address string. It is the exact inverse of DecodeAddress.
func EncodeAddress(opts EncodeAddressOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	payload := make([]byte, 0, addressPayloadSize)
	payload = append(payload, AddressVersion)
	payload = append(payload, bigToBytes32(opts.MasterPublicKey)...)

	chainBytes := allChainsSentinel
	if opts.Chain != nil {
		chainBytes = opts.Chain.bytes()
	}
	for i := range chainBytes {
		chainBytes[i] ^= chainMask[i]
	}
	payload = append(payload, chainBytes[:]...)
	payload = append(payload, opts.ViewingPublicKey[:]...)

	grouped, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(AddressHRP, grouped)
}

// DecodedAddress is the result of DecodeAddress. Chain is nil when the
// address carries the all-chains sentinel.
type DecodedAddress struct {
	MasterPublicKey  *big.Int
	ViewingPublicKey [32]byte
	Chain            *Chain
}

// DecodeAddress decodes a shielded address string back into its components.
// It fails with ErrMalformedAddress on any checksum, length, prefix or
// version violation. The address must be canonical: re-encoding the decoded
// payload yields the input again.
func DecodeAddress(addr string) (*DecodedAddress, error) {
	if len(addr) <= 0 {
		return nil, ErrNullAddress
	}

	// mixed case is invalid, only the all-lower and all-upper forms decode
	lower := strings.ToLower(addr)
	if addr != lower && addr != strings.ToUpper(addr) {
		return nil, ErrMalformedAddress
	}

	// The address exceeds the 90 character limit of plain bech32, decode
	// without it and enforce the bech32m checksum by re-encoding.
	hrp, grouped, err := bech32.DecodeNoLimit(lower)
	if err != nil {
		return nil, ErrMalformedAddress
	}
	if hrp != AddressHRP {
		return nil, ErrMalformedAddress
	}
	canonical, err := bech32.EncodeM(hrp, grouped)
	if err != nil || canonical != lower {
		return nil, ErrMalformedAddress
	}

	payload, err := bech32.ConvertBits(grouped, 5, 8, false)
	if err != nil {
		return nil, ErrMalformedAddress
	}
	if len(payload) != addressPayloadSize {
		return nil, ErrMalformedAddress
	}
	if payload[0] != AddressVersion {
		return nil, ErrMalformedAddress
	}

	decoded := &DecodedAddress{
		MasterPublicKey: new(big.Int).SetBytes(payload[1:33]),
	}

	var chainBytes [8]byte
	copy(chainBytes[:], payload[33:41])
	for i := range chainBytes {
		chainBytes[i] ^= chainMask[i]
	}
	decoded.Chain = chainFromBytes(chainBytes)

	copy(decoded.ViewingPublicKey[:], payload[41:73])
	return decoded, nil
}

// Address returns the shielded address of the wallet keys for the given
// chain, nil meaning valid on all chains.
func (k *WalletKeys) Address(chain *Chain) (string, error) {
	return EncodeAddress(EncodeAddressOpts{
		MasterPublicKey:  k.MasterPublicKey,
		ViewingPublicKey: k.ViewingPublicKey,
		Chain:            chain,
	})
}

func bigToBytes32(v *big.Int) []byte {
	var buf [32]byte
	v.FillBytes(buf[:])
	return buf[:]
}
