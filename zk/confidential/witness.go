package confidential

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/Stealf-finance/backend-stealf-sub001/confidential/merkle"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

var (
	ErrPublicInputOutOfField = errors.New("public input exceeds scalar field")
	ErrMissingMerklePath     = errors.New("claim witness has no merkle path")
)

var scalarModulus = fr.Modulus()

func checkScalar(name string, b [32]byte) error {
	if new(big.Int).SetBytes(b[:]).Cmp(scalarModulus) >= 0 {
		return fmt.Errorf("%w: %w: %s", protocol.ErrCrypto, ErrPublicInputOutOfField, name)
	}
	return nil
}

func half(b [16]byte) [32]byte {
	var out [32]byte
	copy(out[16:], b[:])
	return out
}

func u64Input(v uint64) [32]byte {
	var out [32]byte
	new(big.Int).SetUint64(v).FillBytes(out[:])
	return out
}

// RegistrationWitness proves a wallet controls the viewing key bound to
// its encryption pubkey. Private: the master viewing key.
type RegistrationWitness struct {
	Owner            solana.Pubkey
	EncryptionPubkey [32]byte
	ViewingKeyHash   [32]byte

	MasterViewingKey [16]byte
}

// PublicInputs fixes the verifier's input ordering: owner halves, then
// encryption pubkey halves, then the viewing key hash.
func (w RegistrationWitness) PublicInputs() ([][32]byte, error) {
	if err := checkScalar("viewing key hash", w.ViewingKeyHash); err != nil {
		return nil, err
	}
	var encLow, encHigh [16]byte
	copy(encLow[:], w.EncryptionPubkey[:16])
	copy(encHigh[:], w.EncryptionPubkey[16:])
	return [][32]byte{
		half(w.Owner.Low()),
		half(w.Owner.High()),
		half(encLow),
		half(encHigh),
		w.ViewingKeyHash,
	}, nil
}

// DepositWitness backs both deposit circuits. In the hidden variant the
// amount stays private and only the commitment binds it; the public
// variant also exposes the amount. The private fields are the full
// commitment preimage.
type DepositWitness struct {
	Commitment    [32]byte
	DepositLinker [32]byte
	TxViewingKey  [32]byte
	Amount        uint64

	RandomSecret     [32]byte
	Nullifier        [32]byte
	Recipient        solana.Pubkey
	MasterViewingKey [16]byte
}

func (w DepositWitness) publicPrefix() ([][32]byte, error) {
	for _, in := range []struct {
		name string
		v    [32]byte
	}{
		{"commitment", w.Commitment},
		{"deposit linker", w.DepositLinker},
		{"tx viewing key", w.TxViewingKey},
	} {
		if err := checkScalar(in.name, in.v); err != nil {
			return nil, err
		}
	}
	return [][32]byte{w.Commitment, w.DepositLinker, w.TxViewingKey}, nil
}

// HiddenPublicInputs is the input ordering for the hidden-amount circuit.
func (w DepositWitness) HiddenPublicInputs() ([][32]byte, error) {
	return w.publicPrefix()
}

// PublicPublicInputs appends the amount for the public-amount circuit.
func (w DepositWitness) PublicPublicInputs() ([][32]byte, error) {
	prefix, err := w.publicPrefix()
	if err != nil {
		return nil, err
	}
	return append(prefix, u64Input(w.Amount)), nil
}

// ClaimWitness backs both claim circuits: membership of the note in the
// commitment tree plus correct nullifier and fee split. Recipient is the
// payout destination; NoteRecipient is the address the commitment was
// bound to, which may differ. The private fields are the full commitment
// preimage plus the membership path.
type ClaimWitness struct {
	Root          [32]byte
	NullifierHash [32]byte
	ClaimLinker   [32]byte
	TxViewingKey  [32]byte
	Recipient     solana.Pubkey
	Amount        uint64
	RelayerFee    uint64
	Commission    uint64

	RandomSecret     [32]byte
	Nullifier        [32]byte
	NoteRecipient    solana.Pubkey
	MasterViewingKey [16]byte
	Path             *merkle.Path
}

func (w ClaimWitness) publicPrefix() ([][32]byte, error) {
	if w.Path == nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrPrecondition, ErrMissingMerklePath)
	}
	for _, in := range []struct {
		name string
		v    [32]byte
	}{
		{"merkle root", w.Root},
		{"nullifier hash", w.NullifierHash},
		{"claim linker", w.ClaimLinker},
		{"tx viewing key", w.TxViewingKey},
	} {
		if err := checkScalar(in.name, in.v); err != nil {
			return nil, err
		}
	}
	return [][32]byte{
		w.Root,
		w.NullifierHash,
		w.ClaimLinker,
		w.TxViewingKey,
		half(w.Recipient.Low()),
		half(w.Recipient.High()),
	}, nil
}

// HiddenPublicInputs keeps the claimed amount private; fees still appear
// so the program can route them.
func (w ClaimWitness) HiddenPublicInputs() ([][32]byte, error) {
	prefix, err := w.publicPrefix()
	if err != nil {
		return nil, err
	}
	return append(prefix, u64Input(w.RelayerFee), u64Input(w.Commission)), nil
}

// PublicPublicInputs exposes the full amount alongside the fees.
func (w ClaimWitness) PublicPublicInputs() ([][32]byte, error) {
	prefix, err := w.publicPrefix()
	if err != nil {
		return nil, err
	}
	return append(prefix, u64Input(w.Amount), u64Input(w.RelayerFee), u64Input(w.Commission)), nil
}
