package confidential

import (
	"encoding/binary"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	zk "github.com/Stealf-finance/backend-stealf-sub001/zk/confidential"
)

// ixData accumulates anchor instruction data: discriminator first, then
// arguments in declaration order, integers little-endian.
type ixData struct {
	buf []byte
}

func newIxData(method string) *ixData {
	d := anchorDiscriminator(method)
	return &ixData{buf: append(make([]byte, 0, 512), d[:]...)}
}

func (d *ixData) bytes(b []byte) *ixData {
	d.buf = append(d.buf, b...)
	return d
}

func (d *ixData) u64(v uint64) *ixData {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	d.buf = append(d.buf, tmp[:]...)
	return d
}

// vec32 encodes a length-prefixed list of 32-byte field elements.
func (d *ixData) vec32(items [][32]byte) *ixData {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(items)))
	d.buf = append(d.buf, n[:]...)
	for _, it := range items {
		d.buf = append(d.buf, it[:]...)
	}
	return d
}

// proofBundle appends the canonical proof followed by its public inputs.
func (d *ixData) proofBundle(b *zk.Bundle) *ixData {
	d.buf = append(d.buf, b.Proof[:]...)
	return d.vec32(b.PublicInputs)
}

// mxeMetas lists the computation-network accounts in the order the program
// declares them, ending with the instructions sysvar.
func (p *Program) mxeMetas() []solana.AccountMeta {
	return []solana.AccountMeta{
		{Pubkey: p.MXE.Mempool, IsWritable: true},
		{Pubkey: p.MXE.ExecPool, IsWritable: true},
		{Pubkey: p.MXE.CompDef},
		{Pubkey: p.MXE.Cluster, IsWritable: true},
		{Pubkey: p.MXE.SignPDA},
		{Pubkey: solana.InstructionsSysvarID},
	}
}

// derivedAccounts bundles the PDAs an operation touches.
type derivedAccounts struct {
	UserAccount       solana.Pubkey
	Vault             solana.Pubkey
	CommitmentTree    solana.Pubkey
	NullifierRegistry solana.Pubkey
}

func (p *Program) deriveAccounts(owner solana.Pubkey) (derivedAccounts, error) {
	var out derivedAccounts
	var err error
	if out.UserAccount, _, err = p.UserAccountPDA(owner); err != nil {
		return out, err
	}
	if out.Vault, _, err = p.VaultPDA(); err != nil {
		return out, err
	}
	if out.CommitmentTree, _, err = p.CommitmentTreePDA(); err != nil {
		return out, err
	}
	if out.NullifierRegistry, _, err = p.NullifierRegistryPDA(); err != nil {
		return out, err
	}
	return out, nil
}

// initializeUserAccountIx creates the encrypted account for owner with its
// X25519 encryption pubkey. The payer funds rent and signs; the owner need
// not sign, so a sender can initialize a recipient's account.
func (p *Program) initializeUserAccountIx(payer, owner, userAccount solana.Pubkey, encryptionPubkey [32]byte) solana.Instruction {
	data := newIxData("initialize_user_account").bytes(encryptionPubkey[:])
	accounts := []solana.AccountMeta{
		{Pubkey: payer, IsSigner: true, IsWritable: true},
		{Pubkey: owner},
		{Pubkey: userAccount, IsWritable: true},
		{Pubkey: solana.SystemProgramID},
	}
	return solana.Instruction{ProgramID: p.ID, Accounts: accounts, Data: data.buf}
}

// initializeTokenAccountIx creates the owner's associated token account,
// funded by payer.
func (p *Program) initializeTokenAccountIx(payer, owner, ata, mint solana.Pubkey) solana.Instruction {
	data := newIxData("initialize_token_account")
	accounts := []solana.AccountMeta{
		{Pubkey: payer, IsSigner: true, IsWritable: true},
		{Pubkey: owner},
		{Pubkey: ata, IsWritable: true},
		{Pubkey: mint},
		{Pubkey: p.TokenProgram},
		{Pubkey: p.AssociatedTokenProgram},
		{Pubkey: solana.SystemProgramID},
	}
	return solana.Instruction{ProgramID: p.ID, Accounts: accounts, Data: data.buf}
}

// registerIx covers both registration flavors; anonymous registration runs
// under an ephemeral owner key instead of the wallet key.
func (p *Program) registerIx(method string, owner, userAccount solana.Pubkey, bundle *zk.Bundle) solana.Instruction {
	data := newIxData(method).proofBundle(bundle)
	accounts := append([]solana.AccountMeta{
		{Pubkey: owner, IsSigner: true, IsWritable: true},
		{Pubkey: userAccount, IsWritable: true},
		{Pubkey: solana.SystemProgramID},
	}, p.mxeMetas()...)
	return solana.Instruction{ProgramID: p.ID, Accounts: accounts, Data: data.buf}
}

// convertToSharedIx clears the account's end-to-end encryption, exposing
// the balance to both counterparties.
func (p *Program) convertToSharedIx(owner, userAccount solana.Pubkey) solana.Instruction {
	data := newIxData("convert_to_shared")
	accounts := append([]solana.AccountMeta{
		{Pubkey: owner, IsSigner: true},
		{Pubkey: userAccount, IsWritable: true},
	}, p.mxeMetas()...)
	return solana.Instruction{ProgramID: p.ID, Accounts: accounts, Data: data.buf}
}

// registerViewingKeyIx records the viewing key hash for audit scoping.
func (p *Program) registerViewingKeyIx(owner, userAccount solana.Pubkey, viewingKeyHash [32]byte) solana.Instruction {
	data := newIxData("register_viewing_key").bytes(viewingKeyHash[:])
	accounts := []solana.AccountMeta{
		{Pubkey: owner, IsSigner: true},
		{Pubkey: userAccount, IsWritable: true},
	}
	return solana.Instruction{ProgramID: p.ID, Accounts: accounts, Data: data.buf}
}

// depositParams carries the values a deposit instruction publishes: the
// commitment, the linker hash and the encrypted amount envelope.
type depositParams struct {
	Commitment      [32]byte
	LinkerHash      [32]byte
	EncryptedAmount [32]byte
	Nonce           [16]byte
	EphemeralPubkey [32]byte
	Amount          uint64
	Hidden          bool
}

func depositMethod(hidden, native bool) string {
	switch {
	case hidden && native:
		return "deposit_native_hidden"
	case hidden:
		return "deposit_token_hidden"
	case native:
		return "deposit_native_public"
	default:
		return "deposit_token_public"
	}
}

// depositIx builds a native deposit. Token deposits add the token accounts
// via depositTokenIx.
func (p *Program) depositIx(depositor solana.Pubkey, derived derivedAccounts, params depositParams, bundle *zk.Bundle) solana.Instruction {
	data := newIxData(depositMethod(params.Hidden, true)).
		bytes(params.Commitment[:]).
		bytes(params.LinkerHash[:]).
		bytes(params.EncryptedAmount[:]).
		bytes(params.Nonce[:]).
		bytes(params.EphemeralPubkey[:])
	if !params.Hidden {
		data.u64(params.Amount)
	}
	data.proofBundle(bundle)

	accounts := append([]solana.AccountMeta{
		{Pubkey: depositor, IsSigner: true, IsWritable: true},
		{Pubkey: derived.Vault, IsWritable: true},
		{Pubkey: derived.CommitmentTree, IsWritable: true},
		{Pubkey: solana.SystemProgramID},
	}, p.mxeMetas()...)
	return solana.Instruction{ProgramID: p.ID, Accounts: accounts, Data: data.buf}
}

// depositTokenIx is the token-asset deposit variant.
func (p *Program) depositTokenIx(depositor, depositorATA, vaultATA, mint solana.Pubkey, derived derivedAccounts, params depositParams, bundle *zk.Bundle) solana.Instruction {
	data := newIxData(depositMethod(params.Hidden, false)).
		bytes(params.Commitment[:]).
		bytes(params.LinkerHash[:]).
		bytes(params.EncryptedAmount[:]).
		bytes(params.Nonce[:]).
		bytes(params.EphemeralPubkey[:])
	if !params.Hidden {
		data.u64(params.Amount)
	}
	data.proofBundle(bundle)

	accounts := append([]solana.AccountMeta{
		{Pubkey: depositor, IsSigner: true, IsWritable: true},
		{Pubkey: depositorATA, IsWritable: true},
		{Pubkey: vaultATA, IsWritable: true},
		{Pubkey: mint},
		{Pubkey: derived.Vault, IsWritable: true},
		{Pubkey: derived.CommitmentTree, IsWritable: true},
		{Pubkey: p.TokenProgram},
		{Pubkey: solana.SystemProgramID},
	}, p.mxeMetas()...)
	return solana.Instruction{ProgramID: p.ID, Accounts: accounts, Data: data.buf}
}

// receiverVariant is the 2x2 instruction selection on the receiver's
// account state: balance already initialised or not, balance encrypted for
// the computation network or shared.
type receiverVariant uint8

const (
	variantEncryptedInit receiverVariant = iota
	variantEncrypted
	variantSharedInit
	variantShared
)

func selectReceiverVariant(balanceInitialised, encrypted bool) receiverVariant {
	switch {
	case encrypted && !balanceInitialised:
		return variantEncryptedInit
	case encrypted:
		return variantEncrypted
	case !balanceInitialised:
		return variantSharedInit
	default:
		return variantShared
	}
}

func (v receiverVariant) suffix() string {
	switch v {
	case variantEncryptedInit:
		return "_encrypted_init"
	case variantEncrypted:
		return "_encrypted"
	case variantSharedInit:
		return "_shared_init"
	default:
		return "_shared"
	}
}

// claimParams carries the public claim values. Amount appears in data only
// for the public-amount circuit.
type claimParams struct {
	Root          [32]byte
	NullifierHash [32]byte
	LinkerHash    [32]byte
	Recipient     solana.Pubkey
	Amount        uint64
	RelayerFee    uint64
	Commission    uint64
	Hidden        bool
	Variant       receiverVariant
}

// claimIx spends one commitment to the recipient.
func (p *Program) claimIx(recipientUserAccount solana.Pubkey, feePayer solana.Pubkey, derived derivedAccounts, params claimParams, bundle *zk.Bundle) solana.Instruction {
	method := "claim_public"
	if params.Hidden {
		method = "claim_hidden"
	}
	data := newIxData(method + params.Variant.suffix()).
		bytes(params.Root[:]).
		bytes(params.NullifierHash[:]).
		bytes(params.LinkerHash[:])
	if !params.Hidden {
		data.u64(params.Amount)
	}
	data.u64(params.RelayerFee).u64(params.Commission)
	data.proofBundle(bundle)

	accounts := append([]solana.AccountMeta{
		{Pubkey: feePayer, IsSigner: true, IsWritable: true},
		{Pubkey: params.Recipient, IsWritable: true},
		{Pubkey: recipientUserAccount, IsWritable: true},
		{Pubkey: derived.Vault, IsWritable: true},
		{Pubkey: derived.CommitmentTree},
		{Pubkey: derived.NullifierRegistry, IsWritable: true},
		{Pubkey: solana.SystemProgramID},
	}, p.mxeMetas()...)
	return solana.Instruction{ProgramID: p.ID, Accounts: accounts, Data: data.buf}
}

// transferParams carries a direct confidential transfer: a fresh encrypted
// amount envelope for the receiver plus the sender's representation.
type transferParams struct {
	EncryptedAmount [32]byte
	Nonce           [16]byte
	EphemeralPubkey [32]byte
	LinkerHash      [32]byte
	Amount          uint64
	SenderShared    bool
	Variant         receiverVariant
}

// transferIx moves confidential balance between two registered accounts.
// The computation network applies the balance updates; only shared-sender
// transfers expose the amount in instruction data.
func (p *Program) transferIx(sender, senderUserAccount, receiverUserAccount solana.Pubkey, params transferParams) solana.Instruction {
	prefix := "transfer_encrypted"
	if params.SenderShared {
		prefix = "transfer_shared"
	}
	data := newIxData(prefix + params.Variant.suffix()).
		bytes(params.EncryptedAmount[:]).
		bytes(params.Nonce[:]).
		bytes(params.EphemeralPubkey[:]).
		bytes(params.LinkerHash[:])
	if params.SenderShared {
		data.u64(params.Amount)
	}

	accounts := append([]solana.AccountMeta{
		{Pubkey: sender, IsSigner: true, IsWritable: true},
		{Pubkey: senderUserAccount, IsWritable: true},
		{Pubkey: receiverUserAccount, IsWritable: true},
		{Pubkey: solana.SystemProgramID},
	}, p.mxeMetas()...)
	return solana.Instruction{ProgramID: p.ID, Accounts: accounts, Data: data.buf}
}
