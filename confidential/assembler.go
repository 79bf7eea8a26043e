package confidential

import (
	"context"
	"fmt"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solanarpc"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// Assembler turns instruction sequences into mode-dependent transactions.
// It prepends the compute budget instructions and resolves the fee payer
// (the wallet, or the relayer in Relayed mode).
type Assembler struct {
	RPC *solanarpc.Client

	// ComputeUnitLimit and ComputeUnitPrice are prepended to every
	// transaction. Zero values skip the respective instruction.
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
}

func (a *Assembler) withBudget(instructions []solana.Instruction) []solana.Instruction {
	out := make([]solana.Instruction, 0, len(instructions)+2)
	if a.ComputeUnitLimit > 0 {
		out = append(out, solana.ComputeBudgetSetComputeUnitLimit(a.ComputeUnitLimit))
	}
	if a.ComputeUnitPrice > 0 {
		out = append(out, solana.ComputeBudgetSetComputeUnitPrice(a.ComputeUnitPrice))
	}
	return append(out, instructions...)
}

// Assemble compiles, signs and (mode permitting) submits. extraSigners
// carry ephemeral keys that must sign alongside the wallet.
func (a *Assembler) Assemble(ctx context.Context, signer Signer, instructions []solana.Instruction, mode SubmitMode, extraSigners map[solana.Pubkey]Signer) (*Submission, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: nil signer", protocol.ErrConfiguration)
	}
	if mode == nil {
		return nil, fmt.Errorf("%w: nil submit mode", protocol.ErrConfiguration)
	}
	instructions = a.withBudget(instructions)

	feePayer := signer.PublicKey()
	if m, ok := mode.(Relayed); ok {
		if m.Relayer == nil {
			return nil, fmt.Errorf("%w: relayed mode without relayer", protocol.ErrUnresolvedDependency)
		}
		addr, err := m.Relayer.Address(ctx)
		if err != nil {
			return nil, err
		}
		feePayer = addr
	}

	blockhash := solana.PlaceholderBlockhash
	if _, raw := mode.(Raw); !raw {
		if a.RPC == nil {
			return nil, fmt.Errorf("%w: assembler has no rpc client", protocol.ErrConfiguration)
		}
		bh, err := a.RPC.LatestBlockhash(ctx)
		if err != nil {
			return nil, err
		}
		blockhash = bh
	}

	msg, err := solana.CompileLegacy(blockhash, feePayer, instructions)
	if err != nil {
		return nil, err
	}

	sigs := make(map[solana.Pubkey][64]byte)
	switch mode.(type) {
	case Raw, Prepared:
		// Unsigned by design of the mode.
	default:
		for _, pk := range msg.RequiredSigners() {
			var s Signer
			switch {
			case pk == signer.PublicKey():
				s = signer
			case extraSigners[pk] != nil:
				s = extraSigners[pk]
			default:
				continue
			}
			sig, err := signMessageBytes(ctx, s, msg.Bytes)
			if err != nil {
				return nil, err
			}
			sigs[pk] = sig
		}
	}

	sub := &Submission{
		Transaction: msg.Assemble(sigs),
		Message:     msg,
	}

	switch m := mode.(type) {
	case Forwarded:
		if m.Forwarder == nil {
			return nil, fmt.Errorf("%w: forwarded mode without forwarder", protocol.ErrConfiguration)
		}
		sig, err := m.Forwarder.Forward(ctx, sub.Transaction)
		if err != nil {
			return nil, err
		}
		sub.Signature = sig
	case Relayed:
		sig, err := m.Relayer.Forward(ctx, sub.Transaction)
		if err != nil {
			return nil, err
		}
		sub.Signature = sig
	}
	return sub, nil
}
