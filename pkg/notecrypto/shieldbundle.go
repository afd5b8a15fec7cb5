package notecrypto

import (
	"crypto/rand"
	"crypto/sha256"
)

// ShieldBundle is the confidential part of a shield commitment. Unlike the
// transact Ciphertext it is packed into exactly three 32-byte words:
//
//	word 0: IV (16 bytes) followed by the GCM tag (16 bytes)
//	word 1: AES-GCM ciphertext of random (16 bytes) plus zero padding
//	word 2: recipient viewing public key, masked with a keystream derived
//	        from the ephemeral private key alone
//
// The byte offsets are protocol-fixed; the random nonce is always the first
// 16 bytes of the decrypted word 1.
type ShieldBundle [3][32]byte

// EncryptShieldBundle builds the bundle for a new shield. sharedKey is the
// key agreed between the ephemeral private key and the recipient's viewing
// public key; ephemeralPriv additionally masks the recipient viewing key in
// word 2 so the shielder can later recover who it shielded to.
func EncryptShieldBundle(
	sharedKey [32]byte,
	ephemeralPriv [32]byte,
	random [16]byte,
	receiverViewingPub [32]byte,
) (ShieldBundle, error) {
	var bundle ShieldBundle

	gcm, err := newGCM(sharedKey)
	if err != nil {
		return bundle, err
	}

	var iv [ivSize]byte
	if _, err := rand.Read(iv[:]); err != nil {
		return bundle, err
	}

	var plaintext [32]byte
	copy(plaintext[:16], random[:])

	sealed := gcm.Seal(nil, iv[:], plaintext[:], nil)

	copy(bundle[0][:16], iv[:])
	copy(bundle[0][16:], sealed[32:])
	copy(bundle[1][:], sealed[:32])

	mask := viewingKeyMask(ephemeralPriv, iv)
	for i := 0; i < 32; i++ {
		bundle[2][i] = receiverViewingPub[i] ^ mask[i]
	}
	return bundle, nil
}

// DecryptShieldBundle recovers the random nonce of a shield commitment with
// the shared key derived on the receiving side. The boolean result is false
// on tag mismatch, meaning the shield is not addressed to this wallet.
func DecryptShieldBundle(sharedKey [32]byte, bundle ShieldBundle) ([16]byte, bool) {
	var random [16]byte

	gcm, err := newGCM(sharedKey)
	if err != nil {
		return random, false
	}

	var iv [ivSize]byte
	copy(iv[:], bundle[0][:16])

	sealed := make([]byte, 0, 32+tagSize)
	sealed = append(sealed, bundle[1][:]...)
	sealed = append(sealed, bundle[0][16:]...)

	plaintext, err := gcm.Open(nil, iv[:], sealed, nil)
	if err != nil {
		return random, false
	}
	copy(random[:], plaintext[:16])
	return random, true
}

// RecoverShieldedViewingKey is the sender-side inverse of the word 2 mask.
func RecoverShieldedViewingKey(ephemeralPriv [32]byte, bundle ShieldBundle) [32]byte {
	var iv [ivSize]byte
	copy(iv[:], bundle[0][:16])

	var viewingPub [32]byte
	mask := viewingKeyMask(ephemeralPriv, iv)
	for i := 0; i < 32; i++ {
		viewingPub[i] = bundle[2][i] ^ mask[i]
	}
	return viewingPub
}

func viewingKeyMask(ephemeralPriv [32]byte, iv [ivSize]byte) [32]byte {
	h := sha256.New()
	h.Write(ephemeralPriv[:])
	h.Write(iv[:])
	var mask [32]byte
	copy(mask[:], h.Sum(nil))
	return mask
}
