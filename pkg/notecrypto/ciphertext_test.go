package notecrypto

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomBytes16(t *testing.T) [16]byte {
	t.Helper()
	var b [16]byte
	_, err := rand.Read(b[:])
	require.NoError(t, err)
	return b
}

func testNoteFields(t *testing.T) NoteFields {
	t.Helper()
	return NoteFields{
		MasterPublicKey: big.NewInt(0).SetBytes([]byte("master-public-key")),
		TokenHash:       big.NewInt(0).SetBytes([]byte("token-hash")),
		Random:          randomBytes16(t),
		Value:           big.NewInt(100),
	}
}

func TestEncryptDecryptNoteRoundTrip(t *testing.T) {
	_, pub := newTestKeypair(t)
	priv, _ := newTestKeypair(t)
	key, ok := SharedSymmetricKey(priv, pub)
	require.True(t, ok)

	fields := testNoteFields(t)
	ct, err := EncryptNote(key, fields)
	require.NoError(t, err)

	opened, ok := DecryptNote(key, ct)
	require.True(t, ok)
	require.Zero(t, opened.MasterPublicKey.Cmp(fields.MasterPublicKey))
	require.Zero(t, opened.TokenHash.Cmp(fields.TokenHash))
	require.Equal(t, fields.Random, opened.Random)
	require.Zero(t, opened.Value.Cmp(fields.Value))
	require.Equal(t, fields.Memo, opened.Memo)
}

func TestDecryptNoteWrongKeyIsAMiss(t *testing.T) {
	ownerPriv, _ := newTestKeypair(t)
	_, senderPub := newTestKeypair(t)
	ownerKey, ok := SharedSymmetricKey(ownerPriv, senderPub)
	require.True(t, ok)

	ct, err := EncryptNote(ownerKey, testNoteFields(t))
	require.NoError(t, err)

	strangerPriv, _ := newTestKeypair(t)
	strangerKey, ok := SharedSymmetricKey(strangerPriv, senderPub)
	require.True(t, ok)

	// the AEAD tag is load bearing: a wrong key never yields a plausible
	// plaintext, it yields nothing
	opened, ok := DecryptNote(strangerKey, ct)
	require.False(t, ok)
	require.Nil(t, opened)
}

func TestDecryptNoteTamperedCiphertextIsAMiss(t *testing.T) {
	priv, pub := newTestKeypair(t)
	key, ok := SharedSymmetricKey(priv, pub)
	require.True(t, ok)

	ct, err := EncryptNote(key, testNoteFields(t))
	require.NoError(t, err)

	ct.Blocks[2][0] ^= 0x01
	_, ok = DecryptNote(key, ct)
	require.False(t, ok)
}

func TestEncryptNoteValueOverflow(t *testing.T) {
	var key [32]byte
	fields := testNoteFields(t)
	fields.Value = new(big.Int).Lsh(big.NewInt(1), 128)

	_, err := EncryptNote(key, fields)
	require.EqualError(t, err, ErrValueOverflow.Error())
}

func TestShieldBundleRoundTrip(t *testing.T) {
	ephemeralPriv, ephemeralPub := newTestKeypair(t)
	receiverPriv, receiverPub := newTestKeypair(t)

	senderKey, ok := SharedSymmetricKey(ephemeralPriv, receiverPub)
	require.True(t, ok)

	random := randomBytes16(t)
	bundle, err := EncryptShieldBundle(senderKey, ephemeralPriv, random, receiverPub)
	require.NoError(t, err)

	// receiver side derives the same key from the published shield key
	receiverKey, ok := SharedSymmetricKey(receiverPriv, ephemeralPub)
	require.True(t, ok)
	require.Equal(t, senderKey, receiverKey)

	recovered, ok := DecryptShieldBundle(receiverKey, bundle)
	require.True(t, ok)
	require.Equal(t, random, recovered)

	require.Equal(t, receiverPub, RecoverShieldedViewingKey(ephemeralPriv, bundle))
}

func TestShieldBundleForeignKeyIsAMiss(t *testing.T) {
	ephemeralPriv, _ := newTestKeypair(t)
	_, receiverPub := newTestKeypair(t)
	strangerPriv, _ := newTestKeypair(t)

	key, ok := SharedSymmetricKey(ephemeralPriv, receiverPub)
	require.True(t, ok)
	bundle, err := EncryptShieldBundle(key, ephemeralPriv, randomBytes16(t), receiverPub)
	require.NoError(t, err)

	strangerKey, ok := SharedSymmetricKey(strangerPriv, receiverPub)
	require.True(t, ok)
	_, ok = DecryptShieldBundle(strangerKey, bundle)
	require.False(t, ok)
}

func TestNullifierDeterministic(t *testing.T) {
	nullifyingKey := big.NewInt(123456789)

	first, err := Nullifier(nullifyingKey, 42)
	require.NoError(t, err)
	second, err := Nullifier(nullifyingKey, 42)
	require.NoError(t, err)
	require.Zero(t, first.Cmp(second))

	other, err := Nullifier(nullifyingKey, 43)
	require.NoError(t, err)
	require.NotZero(t, first.Cmp(other))
}
