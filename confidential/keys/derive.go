// Package keys derives every wallet secret from one signature over a fixed
// warning message. The signature is the master seed; each purpose gets an
// independent KMAC domain, and per-deposit secrets add a second KMAC pass
// keyed by the generation index.
package keys

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// DerivationMessage is signed exactly once per wallet lifetime. The wording
// is part of the protocol: changing it changes every derived secret.
const DerivationMessage = "STEALF CONFIDENTIAL ACCESS\n" +
	"Signing this message derives the secrets protecting your confidential balance.\n" +
	"Anyone holding this signature can read and spend your confidential funds.\n" +
	"Only sign this message inside the Stealf application."

// MessageSigner is the one capability key derivation needs.
type MessageSigner interface {
	PublicKey() solana.Pubkey
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

const (
	domainX25519           = "stealf/x25519-key"
	domainMasterViewingKey = "stealf/master-viewing-key"
	domainPoseidonBlinding = "stealf/poseidon-blinding"
	domainSHA3Blinding     = "stealf/sha3-blinding"
	domainRandomSecretSeed = "stealf/random-secret-seed"
	domainNullifierSeed    = "stealf/nullifier-seed"
	domainEphemeralSigner  = "stealf/ephemeral-signer-seed"
	domainEphemeralX25519  = "stealf/ephemeral-x25519-seed"
)

// WalletSecrets holds everything derived from the master seed. Per-index
// accessors re-derive on demand; nothing index-scoped is retained.
type WalletSecrets struct {
	MasterViewingKey [16]byte
	PoseidonBlinding [16]byte
	SHA3Blinding     [16]byte

	X25519Private [32]byte
	X25519Public  [32]byte

	randomSecretSeed    [32]byte
	nullifierSeed       [32]byte
	ephemeralSignerSeed [32]byte
	ephemeralX25519Seed [32]byte
}

// Derive obtains exactly one signature from the signer and expands it. On
// signing failure nothing is retained: the error is the only output.
func Derive(ctx context.Context, signer MessageSigner) (*WalletSecrets, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: nil signer", protocol.ErrConfiguration)
	}

	seed, err := signer.SignMessage(ctx, []byte(DerivationMessage))
	if err != nil {
		return nil, fmt.Errorf("derive wallet secrets: %w", err)
	}
	if len(seed) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: signature length %d, want %d", protocol.ErrCrypto, len(seed), ed25519.SignatureSize)
	}

	var ws WalletSecrets
	copy(ws.MasterViewingKey[:], kmac256(seed, nil, []byte(domainMasterViewingKey), 16))
	copy(ws.PoseidonBlinding[:], kmac256(seed, nil, []byte(domainPoseidonBlinding), 16))
	copy(ws.SHA3Blinding[:], kmac256(seed, nil, []byte(domainSHA3Blinding), 16))
	copy(ws.X25519Private[:], kmac256(seed, nil, []byte(domainX25519), 32))
	copy(ws.randomSecretSeed[:], kmac256(seed, nil, []byte(domainRandomSecretSeed), 32))
	copy(ws.nullifierSeed[:], kmac256(seed, nil, []byte(domainNullifierSeed), 32))
	copy(ws.ephemeralSignerSeed[:], kmac256(seed, nil, []byte(domainEphemeralSigner), 32))
	copy(ws.ephemeralX25519Seed[:], kmac256(seed, nil, []byte(domainEphemeralX25519), 32))

	pub, err := curve25519.X25519(ws.X25519Private[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: x25519 public key: %v", protocol.ErrCrypto, err)
	}
	copy(ws.X25519Public[:], pub)

	return &ws, nil
}

// deriveIndexed is the second KMAC pass: KMAC(masterSeed, index) under the
// indexed-derivation domain. Output is 31 bytes left-padded into 32 so the
// value always fits a BN254 scalar.
func deriveIndexed(masterSeed [32]byte, index [32]byte) [32]byte {
	var out [32]byte
	copy(out[1:], kmac256(masterSeed[:], index[:], []byte("stealf/indexed"), 31))
	return out
}

// RandomSecret returns the commitment randomness for one generation index.
func (ws *WalletSecrets) RandomSecret(index [32]byte) [32]byte {
	return deriveIndexed(ws.randomSecretSeed, index)
}

// Nullifier returns the double-spend secret for one generation index. Its
// hash is revealed exactly once, at claim time.
func (ws *WalletSecrets) Nullifier(index [32]byte) [32]byte {
	return deriveIndexed(ws.nullifierSeed, index)
}

// EphemeralSigner returns the one-time signing keypair for one generation
// index. Used once, never persisted.
func (ws *WalletSecrets) EphemeralSigner(index [32]byte) (ed25519.PrivateKey, solana.Pubkey) {
	seed := deriveIndexed(ws.ephemeralSignerSeed, index)
	priv := ed25519.NewKeyFromSeed(seed[:])
	var pub solana.Pubkey
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return priv, pub
}

// EphemeralX25519 returns the one-time key-agreement keypair for one
// generation index.
func (ws *WalletSecrets) EphemeralX25519(index [32]byte) (priv, pub [32]byte, err error) {
	seed := kmac256(ws.ephemeralX25519Seed[:], index[:], []byte("stealf/indexed"), 32)
	copy(priv[:], seed)
	p, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, fmt.Errorf("%w: ephemeral x25519: %v", protocol.ErrCrypto, err)
	}
	copy(pub[:], p)
	return priv, pub, nil
}
