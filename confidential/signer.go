// Package confidential composes key derivation, the commitment scheme, the
// account state machine, Merkle resolution and proving into the high-level
// register, deposit, claim and transfer operations.
package confidential

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// Signer is the wallet capability everything else derives from. One
// SignMessage call over the fixed derivation message yields the master
// seed; further SignMessage calls over compiled message bytes sign
// transactions.
type Signer interface {
	PublicKey() solana.Pubkey
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

// LocalSigner signs with an in-process ed25519 key. Production wallets sit
// behind the Signer interface instead.
type LocalSigner struct {
	priv ed25519.PrivateKey
	pub  solana.Pubkey
}

func NewLocalSigner(priv ed25519.PrivateKey) (*LocalSigner, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 private key length %d", protocol.ErrConfiguration, len(priv))
	}
	s := &LocalSigner{priv: priv}
	copy(s.pub[:], priv.Public().(ed25519.PublicKey))
	return s, nil
}

func (s *LocalSigner) PublicKey() solana.Pubkey { return s.pub }

func (s *LocalSigner) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}

// signMessageBytes signs compiled message bytes and shapes the result into
// a signature slot value.
func signMessageBytes(ctx context.Context, signer Signer, msg []byte) ([64]byte, error) {
	var out [64]byte
	sig, err := signer.SignMessage(ctx, msg)
	if err != nil {
		return out, fmt.Errorf("sign transaction: %w", err)
	}
	if len(sig) != 64 {
		return out, fmt.Errorf("%w: signature length %d", protocol.ErrCrypto, len(sig))
	}
	copy(out[:], sig)
	return out, nil
}
