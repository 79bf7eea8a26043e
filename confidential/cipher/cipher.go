// Package cipher encrypts confidential balances for the MPC cluster and for
// account owners. Amounts travel as a 32-byte ChaCha20 ciphertext plus a
// 16-byte nonce field, matching the on-chain account layout.
package cipher

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/curve25519"

	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// amountKeyDomain prefixes the shared secret before hashing into the
// ChaCha20 key. Changing it breaks compatibility with every stored balance.
const amountKeyDomain = "amount_encryption_v1"

const (
	// CiphertextLen matches the encrypted balance field on-chain.
	CiphertextLen = 32
	// NonceFieldLen matches the nonce field on-chain. ChaCha20 uses the
	// first 12 bytes; the rest stay zero.
	NonceFieldLen = 16
)

// SharedSecret runs X25519 between our private key and the peer's public
// key. The all-zero output from a low-order peer point is rejected.
func SharedSecret(priv, peerPub [32]byte) ([32]byte, error) {
	var out [32]byte
	s, err := curve25519.X25519(priv[:], peerPub[:])
	if err != nil {
		return out, fmt.Errorf("%w: x25519 agreement: %v", protocol.ErrCrypto, err)
	}
	copy(out[:], s)
	return out, nil
}

func amountKey(sharedSecret [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(amountKeyDomain))
	h.Write(sharedSecret[:])
	var key [32]byte
	h.Sum(key[:0])
	return key
}

// EncryptAmount encrypts a u64 amount under the shared secret with a fresh
// random nonce. The plaintext block is the amount in little-endian followed
// by zero padding; the padding doubles as an integrity check on decryption.
func EncryptAmount(sharedSecret [32]byte, amount uint64) (ciphertext [CiphertextLen]byte, nonce [NonceFieldLen]byte, err error) {
	if _, err = rand.Read(nonce[:chacha20.NonceSize]); err != nil {
		return ciphertext, nonce, fmt.Errorf("%w: nonce: %v", protocol.ErrCrypto, err)
	}
	ciphertext, err = encryptAmountWithNonce(sharedSecret, amount, nonce)
	return ciphertext, nonce, err
}

func encryptAmountWithNonce(sharedSecret [32]byte, amount uint64, nonce [NonceFieldLen]byte) ([CiphertextLen]byte, error) {
	key := amountKey(sharedSecret)
	var out [CiphertextLen]byte
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:chacha20.NonceSize])
	if err != nil {
		return out, fmt.Errorf("%w: chacha20: %v", protocol.ErrCrypto, err)
	}
	var plain [CiphertextLen]byte
	binary.LittleEndian.PutUint64(plain[:8], amount)
	c.XORKeyStream(out[:], plain[:])
	return out, nil
}

// DecryptAmount reverses EncryptAmount. Nonzero padding after the amount
// means the key or nonce is wrong.
func DecryptAmount(sharedSecret [32]byte, ciphertext [CiphertextLen]byte, nonce [NonceFieldLen]byte) (uint64, error) {
	key := amountKey(sharedSecret)
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:chacha20.NonceSize])
	if err != nil {
		return 0, fmt.Errorf("%w: chacha20: %v", protocol.ErrCrypto, err)
	}
	var plain [CiphertextLen]byte
	c.XORKeyStream(plain[:], ciphertext[:])
	for _, b := range plain[8:] {
		if b != 0 {
			return 0, fmt.Errorf("%w: balance padding check failed", protocol.ErrCrypto)
		}
	}
	return binary.LittleEndian.Uint64(plain[:8]), nil
}
