package confidential

import (
	"context"
	"errors"
	"fmt"

	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

var ErrProverUnavailable = errors.New("confidential prover unavailable")

// Prover produces Groth16 proofs for the confidential transfer circuits.
//
// Returned proofs must validate under Proof.Validate; the orchestrator
// canonicalizes them before they reach a transaction.
type Prover interface {
	ProveRegistration(ctx context.Context, w RegistrationWitness) (*Proof, error)
	ProveDepositHidden(ctx context.Context, w DepositWitness) (*Proof, error)
	ProveDepositPublic(ctx context.Context, w DepositWitness) (*Proof, error)
	ProveClaimHidden(ctx context.Context, w ClaimWitness) (*Proof, error)
	ProveClaimPublic(ctx context.Context, w ClaimWitness) (*Proof, error)
}

type UnimplementedProver struct{}

func (UnimplementedProver) ProveRegistration(context.Context, RegistrationWitness) (*Proof, error) {
	return nil, ErrProverUnavailable
}

func (UnimplementedProver) ProveDepositHidden(context.Context, DepositWitness) (*Proof, error) {
	return nil, ErrProverUnavailable
}

func (UnimplementedProver) ProveDepositPublic(context.Context, DepositWitness) (*Proof, error) {
	return nil, ErrProverUnavailable
}

func (UnimplementedProver) ProveClaimHidden(context.Context, ClaimWitness) (*Proof, error) {
	return nil, ErrProverUnavailable
}

func (UnimplementedProver) ProveClaimPublic(context.Context, ClaimWitness) (*Proof, error) {
	return nil, ErrProverUnavailable
}

// Bundle pairs a canonical proof with its ordered public inputs, ready for
// instruction encoding.
type Bundle struct {
	Circuit      Circuit
	Proof        [ProofBytesLen]byte
	PublicInputs [][32]byte
}

// prove dispatches to the circuit's Prover method and canonicalizes.
func prove(ctx context.Context, p Prover, circuit Circuit, inputs [][32]byte, run func() (*Proof, error)) (*Bundle, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrConfiguration, ErrProverUnavailable)
	}
	if err := circuit.Valid(); err != nil {
		return nil, err
	}
	proof, err := run()
	if err != nil {
		return nil, err
	}
	canonical, err := proof.Canonical()
	if err != nil {
		return nil, fmt.Errorf("%s proof: %w", circuit, err)
	}
	return &Bundle{Circuit: circuit, Proof: canonical, PublicInputs: inputs}, nil
}

// ProveRegistrationBundle validates the witness, proves, and canonicalizes.
func ProveRegistrationBundle(ctx context.Context, p Prover, w RegistrationWitness) (*Bundle, error) {
	inputs, err := w.PublicInputs()
	if err != nil {
		return nil, err
	}
	return prove(ctx, p, CircuitRegistration, inputs, func() (*Proof, error) {
		return p.ProveRegistration(ctx, w)
	})
}

// ProveDepositBundle picks the hidden or public deposit circuit.
func ProveDepositBundle(ctx context.Context, p Prover, w DepositWitness, hidden bool) (*Bundle, error) {
	if hidden {
		inputs, err := w.HiddenPublicInputs()
		if err != nil {
			return nil, err
		}
		return prove(ctx, p, CircuitDepositHidden, inputs, func() (*Proof, error) {
			return p.ProveDepositHidden(ctx, w)
		})
	}
	inputs, err := w.PublicPublicInputs()
	if err != nil {
		return nil, err
	}
	return prove(ctx, p, CircuitDepositPublic, inputs, func() (*Proof, error) {
		return p.ProveDepositPublic(ctx, w)
	})
}

// ProveClaimBundle picks the hidden or public claim circuit.
func ProveClaimBundle(ctx context.Context, p Prover, w ClaimWitness, hidden bool) (*Bundle, error) {
	if hidden {
		inputs, err := w.HiddenPublicInputs()
		if err != nil {
			return nil, err
		}
		return prove(ctx, p, CircuitClaimHidden, inputs, func() (*Proof, error) {
			return p.ProveClaimHidden(ctx, w)
		})
	}
	inputs, err := w.PublicPublicInputs()
	if err != nil {
		return nil, err
	}
	return prove(ctx, p, CircuitClaimPublic, inputs, func() (*Proof, error) {
		return p.ProveClaimPublic(ctx, w)
	})
}
