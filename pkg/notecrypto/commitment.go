package notecrypto

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// NotePublicKey binds a note to its recipient:
// npk = Poseidon(masterPublicKey, random).
func NotePublicKey(masterPublicKey *big.Int, random [16]byte) (*big.Int, error) {
	return poseidon.Hash([]*big.Int{
		masterPublicKey,
		new(big.Int).SetBytes(random[:]),
	})
}

// CommitmentHash is the accumulator leaf of a note:
// Poseidon(npk, tokenHash, value).
func CommitmentHash(npk, tokenHash, value *big.Int) (*big.Int, error) {
	return poseidon.Hash([]*big.Int{npk, tokenHash, value})
}

// Nullifier derives the one-time spend marker of the note sitting at the
// given leaf position. Only the holder of the nullifying key can reproduce
// it.
func Nullifier(nullifyingKey *big.Int, leafPosition uint64) (*big.Int, error) {
	return poseidon.Hash([]*big.Int{
		nullifyingKey,
		new(big.Int).SetUint64(leafPosition),
	})
}

// BlindedCommitment is the identifier under which the compliance-proof
// collaborator tracks a note: Poseidon(commitmentHash, npk, leafPosition).
func BlindedCommitment(hash, npk *big.Int, leafPosition uint64) (*big.Int, error) {
	return poseidon.Hash([]*big.Int{
		hash,
		npk,
		new(big.Int).SetUint64(leafPosition),
	})
}

// ReduceToField interprets buf as a big-endian integer reduced into the
// Poseidon field. Wire values of up to 32 bytes pass through unchanged when
// already canonical.
func ReduceToField(buf []byte) *big.Int {
	return new(big.Int).Mod(new(big.Int).SetBytes(buf), constants.Q)
}
