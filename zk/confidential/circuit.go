// Package confidential produces and validates the Groth16 proofs required
// by the confidential transfer program. Proof bytes are canonicalized to
// the exact point encoding the on-chain verifier expects.
package confidential

import (
	"errors"
	"fmt"

	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// Circuit identifies one of the proving circuits deployed alongside the
// program. Each has its own proving and verifying key artifacts.
type Circuit uint8

const (
	CircuitRegistration Circuit = iota + 1
	CircuitDepositHidden
	CircuitDepositPublic
	CircuitClaimHidden
	CircuitClaimPublic
)

var circuitNames = map[Circuit]string{
	CircuitRegistration:  "registration",
	CircuitDepositHidden: "deposit_hidden",
	CircuitDepositPublic: "deposit_public",
	CircuitClaimHidden:   "claim_hidden",
	CircuitClaimPublic:   "claim_public",
}

func (c Circuit) String() string {
	if name, ok := circuitNames[c]; ok {
		return name
	}
	return fmt.Sprintf("circuit(%d)", uint8(c))
}

var ErrUnknownCircuit = errors.New("unknown circuit")

// Valid reports whether c names a deployed circuit.
func (c Circuit) Valid() error {
	if _, ok := circuitNames[c]; !ok {
		return fmt.Errorf("%w: %w %d", protocol.ErrConfiguration, ErrUnknownCircuit, uint8(c))
	}
	return nil
}
