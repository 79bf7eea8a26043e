package confidential

import (
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/forwarder"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
)

// SubmitMode selects what the assembler does with a compiled transaction.
// Exactly one concrete mode is supplied per operation; each carries only
// what it needs.
type SubmitMode interface {
	submitMode()
}

// Raw returns the transaction with the placeholder blockhash and no
// signatures; the caller patches in a fresh blockhash and signs.
type Raw struct{}

// Prepared fetches a fresh blockhash but leaves the transaction unsigned.
type Prepared struct{}

// Signed returns a wallet-signed transaction whose remaining signature
// slots (if any) are zeroed for a later co-signer.
type Signed struct{}

// Forwarded signs and submits through the given forwarder.
type Forwarded struct {
	Forwarder forwarder.Forwarder
}

// Relayed makes the relayer the fee payer: the wallet signs its own slot,
// the relayer countersigns slot 0 and submits.
type Relayed struct {
	Relayer *forwarder.Relayer
}

func (Raw) submitMode()       {}
func (Prepared) submitMode()  {}
func (Signed) submitMode()    {}
func (Forwarded) submitMode() {}
func (Relayed) submitMode()   {}

// Submission is the mode-dependent result of one operation.
type Submission struct {
	// Transaction is the wire-format transaction. In Raw and Prepared
	// modes its signature slots are all zero.
	Transaction []byte

	// Message is the compiled message, kept so callers in Raw mode can
	// re-sign after patching the blockhash.
	Message solana.CompiledMessage

	// Signature is the ledger signature when the mode submitted the
	// transaction, empty otherwise.
	Signature string
}
