package protocol

import "errors"

// Error roots for the whole client. Packages wrap these with %w so callers
// can classify failures with errors.Is regardless of where they surfaced.
var (
	// ErrConfiguration covers missing or inconsistent wiring: no signer,
	// no prover, an unknown purpose code, a disabled circuit.
	ErrConfiguration = errors.New("configuration error")

	// ErrPrecondition covers operations attempted against a state that
	// forbids them: inactive account, reused nullifier, insufficient funds.
	// Precondition failures are raised before any network-mutating call.
	ErrPrecondition = errors.New("precondition failed")

	// ErrDecode covers remote account bytes that do not match the fixed
	// on-chain layout. Layout deviations are errors, never warnings.
	ErrDecode = errors.New("malformed account data")

	// ErrCrypto covers malformed proofs, out-of-field values and
	// encryption failures.
	ErrCrypto = errors.New("cryptographic failure")

	// ErrNetwork covers indexer, forwarder and RPC failures.
	ErrNetwork = errors.New("network failure")

	// ErrUnresolvedDependency is returned when an operation needs a
	// collaborator (typically a relayer) that cannot be resolved.
	ErrUnresolvedDependency = errors.New("unresolved dependency")
)
