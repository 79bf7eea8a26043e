// Package note builds the Poseidon commitments and hashes that tie a
// confidential deposit to its eventual claim. All inputs are range-checked
// against the BN254 scalar field before hashing; nothing here reduces a
// value silently.
package note

import (
	"fmt"
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// fieldModulus is the BN254 scalar field order. Every Poseidon input must
// be strictly below it.
var fieldModulus = fr.Modulus()

func fieldElement(name string, b [32]byte) (*big.Int, error) {
	v := new(big.Int).SetBytes(b[:])
	if v.Cmp(fieldModulus) >= 0 {
		return nil, fmt.Errorf("%w: %s exceeds the scalar field", protocol.ErrCrypto, name)
	}
	return v, nil
}

// pubkeyHalves splits a 32-byte address into two 16-byte field elements.
func pubkeyHalves(pk solana.Pubkey) (low, high *big.Int) {
	l, h := pk.Low(), pk.High()
	return new(big.Int).SetBytes(l[:]), new(big.Int).SetBytes(h[:])
}

// Note is the private material behind one commitment.
type Note struct {
	RandomSecret [32]byte
	Nullifier    [32]byte
	Recipient    solana.Pubkey
	Claimable    uint64
	ViewingKey   [16]byte
}

// Commitment computes the six-input Poseidon commitment inserted into the
// tree at deposit time. The recipient pubkey is split into 16-byte halves
// so both fit the field.
func (n *Note) Commitment() ([32]byte, error) {
	rs, err := fieldElement("random secret", n.RandomSecret)
	if err != nil {
		return [32]byte{}, err
	}
	nul, err := fieldElement("nullifier", n.Nullifier)
	if err != nil {
		return [32]byte{}, err
	}

	low, high := pubkeyHalves(n.Recipient)
	inputs := []*big.Int{
		rs,
		nul,
		low,
		high,
		new(big.Int).SetUint64(n.Claimable),
		new(big.Int).SetBytes(n.ViewingKey[:]),
	}
	h, err := poseidon.Hash(inputs)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: commitment hash: %v", protocol.ErrCrypto, err)
	}
	return toBytes32(h), nil
}

// NullifierHash is the value revealed on-chain at claim time. It is the
// Poseidon hash of the nullifier alone.
func NullifierHash(nullifier [32]byte) ([32]byte, error) {
	nul, err := fieldElement("nullifier", nullifier)
	if err != nil {
		return [32]byte{}, err
	}
	h, err := poseidon.Hash([]*big.Int{nul})
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: nullifier hash: %v", protocol.ErrCrypto, err)
	}
	return toBytes32(h), nil
}

// MasterViewingKeyHash is the stable commitment to the master viewing key
// registered on-chain: Poseidon(mvk).
func MasterViewingKeyHash(mvk [16]byte) ([32]byte, error) {
	h, err := poseidon.Hash([]*big.Int{new(big.Int).SetBytes(mvk[:])})
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: viewing key hash: %v", protocol.ErrCrypto, err)
	}
	return toBytes32(h), nil
}

// TxViewingKey derives the per-transaction viewing key from the master
// viewing key, the operation purpose, and the UTC timestamp split into
// calendar components. A viewer holding the master key can recompute it
// for any window it wants to audit.
func TxViewingKey(masterViewingKey [16]byte, kind protocol.OperationKind, at time.Time) ([32]byte, error) {
	purpose, err := protocol.PurposeFor(kind)
	if err != nil {
		return [32]byte{}, err
	}
	t := at.UTC()
	inputs := []*big.Int{
		new(big.Int).SetBytes(masterViewingKey[:]),
		big.NewInt(int64(purpose)),
		big.NewInt(int64(t.Year())),
		big.NewInt(int64(t.Month())),
		big.NewInt(int64(t.Day())),
		big.NewInt(int64(t.Hour())),
		big.NewInt(int64(t.Minute())),
		big.NewInt(int64(t.Second())),
	}
	h, err := poseidon.Hash(inputs)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: tx viewing key: %v", protocol.ErrCrypto, err)
	}
	return toBytes32(h), nil
}

// DepositLinkerHash ties a deposit to its recipient under the transaction
// viewing key: Poseidon(tvk, recipientLow, recipientHigh). Only a viewer
// who recomputed the viewing key can link the two.
func DepositLinkerHash(txViewingKey [32]byte, recipient solana.Pubkey) ([32]byte, error) {
	tvk, err := fieldElement("tx viewing key", txViewingKey)
	if err != nil {
		return [32]byte{}, err
	}
	low, high := pubkeyHalves(recipient)
	h, err := poseidon.Hash([]*big.Int{tvk, low, high})
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: deposit linker hash: %v", protocol.ErrCrypto, err)
	}
	return toBytes32(h), nil
}

// ClaimLinkerHash ties a claim to the tree slot it spends:
// Poseidon(tvk, insertionIndex).
func ClaimLinkerHash(txViewingKey [32]byte, insertionIndex uint64) ([32]byte, error) {
	tvk, err := fieldElement("tx viewing key", txViewingKey)
	if err != nil {
		return [32]byte{}, err
	}
	h, err := poseidon.Hash([]*big.Int{tvk, new(big.Int).SetUint64(insertionIndex)})
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: claim linker hash: %v", protocol.ErrCrypto, err)
	}
	return toBytes32(h), nil
}

func toBytes32(v *big.Int) [32]byte {
	var out [32]byte
	v.FillBytes(out[:])
	return out
}
