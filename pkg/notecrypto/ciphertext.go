package notecrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"math/big"
)

const (
	// BlockSize is the width of one ciphertext block.
	BlockSize = 32
	// PlaintextBlocks is the fixed number of blocks of a note plaintext.
	PlaintextBlocks = 4

	ivSize  = 16
	tagSize = 16
)

// Ciphertext is the confidential payload of a transact commitment: AES-GCM
// with a 16-byte IV and a 128-bit tag over four fixed-width blocks.
type Ciphertext struct {
	IV     [ivSize]byte
	Tag    [tagSize]byte
	Blocks [PlaintextBlocks][BlockSize]byte
}

// NoteFields is the plaintext of a note ciphertext. The block layout on the
// wire is fixed:
//
//	block 0: recipient master public key
//	block 1: token data hash
//	block 2: random (16 bytes) followed by value (16 bytes, big endian)
//	block 3: memo
type NoteFields struct {
	MasterPublicKey *big.Int
	TokenHash       *big.Int
	Random          [16]byte
	Value           *big.Int
	Memo            [32]byte
}

func (f NoteFields) validate() error {
	if f.Value == nil || f.Value.Sign() < 0 || f.Value.BitLen() > 128 {
		return ErrValueOverflow
	}
	if f.MasterPublicKey == nil || f.MasterPublicKey.BitLen() > 256 ||
		f.TokenHash == nil || f.TokenHash.BitLen() > 256 {
		return ErrFieldOverflow
	}
	return nil
}

func (f NoteFields) marshal() ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, PlaintextBlocks*BlockSize)
	f.MasterPublicKey.FillBytes(buf[0:32])
	f.TokenHash.FillBytes(buf[32:64])
	copy(buf[64:80], f.Random[:])
	f.Value.FillBytes(buf[80:96])
	copy(buf[96:128], f.Memo[:])
	return buf, nil
}

func unmarshalNoteFields(buf []byte) *NoteFields {
	fields := &NoteFields{
		MasterPublicKey: new(big.Int).SetBytes(buf[0:32]),
		TokenHash:       new(big.Int).SetBytes(buf[32:64]),
		Value:           new(big.Int).SetBytes(buf[80:96]),
	}
	copy(fields.Random[:], buf[64:80])
	copy(fields.Memo[:], buf[96:128])
	return fields
}

// EncryptNote seals the note fields under the given symmetric key.
func EncryptNote(key [32]byte, fields NoteFields) (*Ciphertext, error) {
	plaintext, err := fields.marshal()
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ct := &Ciphertext{}
	if _, err := rand.Read(ct.IV[:]); err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, ct.IV[:], plaintext, nil)
	for i := 0; i < PlaintextBlocks; i++ {
		copy(ct.Blocks[i][:], sealed[i*BlockSize:(i+1)*BlockSize])
	}
	copy(ct.Tag[:], sealed[PlaintextBlocks*BlockSize:])
	return ct, nil
}

// DecryptNote opens a note ciphertext. The boolean result is false on tag
// mismatch, that is whenever the key does not own the note. A miss is the
// normal outcome while scanning foreign commitments and allocates nothing
// beyond the AEAD state.
func DecryptNote(key [32]byte, ct *Ciphertext) (*NoteFields, bool) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, false
	}

	sealed := make([]byte, 0, PlaintextBlocks*BlockSize+tagSize)
	for i := 0; i < PlaintextBlocks; i++ {
		sealed = append(sealed, ct.Blocks[i][:]...)
	}
	sealed = append(sealed, ct.Tag[:]...)

	plaintext, err := gcm.Open(nil, ct.IV[:], sealed, nil)
	if err != nil {
		return nil, false
	}
	return unmarshalNoteFields(plaintext), true
}

func newGCM(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, ivSize)
}
