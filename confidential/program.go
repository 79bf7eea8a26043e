package confidential

import (
	"crypto/sha256"
	"fmt"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// PDA seed prefixes fixed by the on-chain program.
var (
	seedUserAccount       = []byte("user_account")
	seedVault             = []byte("vault")
	seedCommitmentTree    = []byte("commitment_tree")
	seedNullifierRegistry = []byte("nullifier_registry")
)

// MXEAccounts are the computation-network accounts every queued instruction
// references: queue and execution pools, the computation definition, the
// cluster account and its signing PDA.
type MXEAccounts struct {
	Mempool  solana.Pubkey
	ExecPool solana.Pubkey
	CompDef  solana.Pubkey
	Cluster  solana.Pubkey
	SignPDA  solana.Pubkey
}

func (m MXEAccounts) validate() error {
	for _, a := range []struct {
		name string
		pk   solana.Pubkey
	}{
		{"mempool", m.Mempool},
		{"execpool", m.ExecPool},
		{"comp def", m.CompDef},
		{"cluster", m.Cluster},
		{"sign pda", m.SignPDA},
	} {
		if a.pk.IsZero() {
			return fmt.Errorf("%w: mxe %s account unset", protocol.ErrConfiguration, a.name)
		}
	}
	return nil
}

// Program locates the confidential transfer program and its derived
// accounts for one deployment.
type Program struct {
	ID  solana.Pubkey
	MXE MXEAccounts

	// TokenProgram and AssociatedTokenProgram back the token asset paths.
	TokenProgram           solana.Pubkey
	AssociatedTokenProgram solana.Pubkey
}

func (p *Program) validate() error {
	if p == nil || p.ID.IsZero() {
		return fmt.Errorf("%w: program id unset", protocol.ErrConfiguration)
	}
	return p.MXE.validate()
}

// UserAccountPDA derives the per-owner encrypted account address.
func (p *Program) UserAccountPDA(owner solana.Pubkey) (solana.Pubkey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedUserAccount, owner[:]}, p.ID)
}

// VaultPDA derives the pool vault holding deposited value.
func (p *Program) VaultPDA() (solana.Pubkey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedVault}, p.ID)
}

// CommitmentTreePDA derives the append-only commitment tree account.
func (p *Program) CommitmentTreePDA() (solana.Pubkey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedCommitmentTree}, p.ID)
}

// NullifierRegistryPDA derives the double-spend registry account.
func (p *Program) NullifierRegistryPDA() (solana.Pubkey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedNullifierRegistry}, p.ID)
}

// AssociatedTokenAddress derives the canonical token account for a wallet
// and mint.
func (p *Program) AssociatedTokenAddress(wallet, mint solana.Pubkey) (solana.Pubkey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{wallet[:], p.TokenProgram[:], mint[:]},
		p.AssociatedTokenProgram,
	)
	return pda, err
}

// anchorDiscriminator is the 8-byte method tag the program dispatches on.
func anchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}
