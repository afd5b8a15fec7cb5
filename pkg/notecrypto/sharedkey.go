// Package notecrypto implements the confidential-payload cryptography of the
// shielded pool: curve25519 shared-key agreement, the AEAD note ciphertext
// and the shield bundle wire encodings, and the Poseidon commitment helpers.
package notecrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"

	"filippo.io/edwards25519"
)

// PublicKey returns the curve point of an Ed25519-style private key. The
// scalar is the clamped low half of SHA-512(priv), so keys produced here are
// compatible with SharedSymmetricKey on both sides of the exchange.
func PublicKey(privateKey [32]byte) ([32]byte, bool) {
	var pub [32]byte

	digest := sha512.Sum512(privateKey[:])
	scalar, err := edwards25519.NewScalar().SetBytesWithClamping(digest[:32])
	if err != nil {
		return pub, false
	}
	point := (&edwards25519.Point{}).ScalarBaseMult(scalar)
	copy(pub[:], point.Bytes())
	return pub, true
}

// GenerateEphemeralKeys returns a fresh random keypair, used as the one-shot
// shield key of a shield transaction.
func GenerateEphemeralKeys() ([32]byte, [32]byte, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	pub, ok := PublicKey(priv)
	if !ok {
		return [32]byte{}, [32]byte{}, ErrKeyGeneration
	}
	return priv, pub, nil
}

// SharedSymmetricKey derives the 256-bit symmetric key shared between the
// holder of privateKey and the holder of the private key behind publicPoint:
// SHA-256 of the Diffie-Hellman point scalar·P.
//
// The boolean result is false when publicPoint is not a valid curve point or
// the product degenerates to a small-order point. Callers in the scan path
// treat false as "this event is not mine", never as a failure.
func SharedSymmetricKey(privateKey [32]byte, publicPoint [32]byte) ([32]byte, bool) {
	var key [32]byte

	digest := sha512.Sum512(privateKey[:])
	scalar, err := edwards25519.NewScalar().SetBytesWithClamping(digest[:32])
	if err != nil {
		return key, false
	}

	point, err := new(edwards25519.Point).SetBytes(publicPoint[:])
	if err != nil {
		return key, false
	}

	shared := new(edwards25519.Point).ScalarMult(scalar, point)
	// clamping makes the scalar a multiple of the cofactor, so any
	// small-order input collapses to the identity here
	if shared.Equal(edwards25519.NewIdentityPoint()) == 1 {
		return key, false
	}

	return sha256.Sum256(shared.Bytes()), true
}
