package confidential

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/Stealf-finance/backend-stealf-sub001/confidential/cipher"
	"github.com/Stealf-finance/backend-stealf-sub001/confidential/keys"
	"github.com/Stealf-finance/backend-stealf-sub001/confidential/merkle"
	"github.com/Stealf-finance/backend-stealf-sub001/confidential/note"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/indexer"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solanarpc"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
	zk "github.com/Stealf-finance/backend-stealf-sub001/zk/confidential"
)

// Client composes the derivation engine, commitment scheme, state machine,
// Merkle resolver and prover into the high-level confidential operations.
// All validation and proving happens before any network-mutating call.
type Client struct {
	Program   *Program
	Signer    Signer
	RPC       *solanarpc.Client
	Indexer   *indexer.Client
	Prover    zk.Prover
	Assembler *Assembler
	Fees      protocol.FeeConfig

	// ClusterEncryptionKey is the MPC cluster's X25519 public key; deposit
	// envelopes are encrypted to it under an ephemeral key.
	ClusterEncryptionKey [32]byte

	// now is replaceable in tests. Nil means time.Now.
	now func() time.Time

	mu      sync.Mutex
	secrets *keys.WalletSecrets
	cache   *cipher.SecretCache
}

func (c *Client) validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil client", protocol.ErrConfiguration)
	}
	if err := c.Program.validate(); err != nil {
		return err
	}
	if c.Signer == nil {
		return fmt.Errorf("%w: missing signer", protocol.ErrConfiguration)
	}
	if c.Assembler == nil {
		return fmt.Errorf("%w: missing assembler", protocol.ErrConfiguration)
	}
	return nil
}

func (c *Client) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// walletSecrets derives the wallet secrets on first use and memoizes them
// together with the shared-secret cache. Derivation failures cache nothing.
func (c *Client) walletSecrets(ctx context.Context) (*keys.WalletSecrets, *cipher.SecretCache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.secrets != nil {
		return c.secrets, c.cache, nil
	}
	ws, err := keys.Derive(ctx, c.Signer)
	if err != nil {
		return nil, nil, err
	}
	c.secrets = ws
	c.cache = cipher.NewSecretCache(ws.X25519Private)
	return c.secrets, c.cache, nil
}

// snapshots performs the single batched account read every operation
// starts with.
func (c *Client) snapshots(ctx context.Context, accounts ...solana.Pubkey) ([]protocol.Snapshot, error) {
	if c.RPC == nil {
		return nil, fmt.Errorf("%w: missing rpc client", protocol.ErrConfiguration)
	}
	addrs := make([]string, len(accounts))
	for i, a := range accounts {
		addrs[i] = a.Base58()
	}
	raws, err := c.RPC.MultipleAccountsBase64(ctx, addrs)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.Snapshot, len(raws))
	for i, raw := range raws {
		snap, err := protocol.Interpret(raw)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", addrs[i], err)
		}
		out[i] = snap
	}
	return out, nil
}

// newGenerationIndex draws the random 256-bit namespace for one deposit's
// secrets.
func newGenerationIndex() (protocol.Bytes32, error) {
	var idx protocol.Bytes32
	if _, err := rand.Read(idx[:]); err != nil {
		return idx, fmt.Errorf("%w: generation index: %v", protocol.ErrCrypto, err)
	}
	return idx, nil
}

// relayerAddress resolves the fee payer string recorded in artifacts.
func relayerAddress(ctx context.Context, mode SubmitMode) (string, error) {
	m, ok := mode.(Relayed)
	if !ok {
		return "", nil
	}
	if m.Relayer == nil {
		return "", fmt.Errorf("%w: relayed mode without relayer", protocol.ErrUnresolvedDependency)
	}
	addr, err := m.Relayer.Address(ctx)
	if err != nil {
		return "", err
	}
	return addr.Base58(), nil
}

// RegisterConfidential creates and activates the wallet's encrypted
// account under its own public key and registers the viewing key hash.
func (c *Client) RegisterConfidential(ctx context.Context, mode SubmitMode) (*Submission, error) {
	return c.register(ctx, mode, false)
}

// RegisterAnonymous registers under a fresh ephemeral owner key so the
// encrypted account is unlinkable to the wallet. The ephemeral key signs
// alongside the wallet, which only pays fees.
func (c *Client) RegisterAnonymous(ctx context.Context, mode SubmitMode) (*Submission, error) {
	return c.register(ctx, mode, true)
}

func (c *Client) register(ctx context.Context, mode SubmitMode, anonymous bool) (*Submission, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	ws, _, err := c.walletSecrets(ctx)
	if err != nil {
		return nil, err
	}

	owner := c.Signer.PublicKey()
	extraSigners := map[solana.Pubkey]Signer{}
	if anonymous {
		idx, err := newGenerationIndex()
		if err != nil {
			return nil, err
		}
		priv, pub := ws.EphemeralSigner([32]byte(idx))
		ephSigner, err := NewLocalSigner(priv)
		if err != nil {
			return nil, err
		}
		owner = pub
		extraSigners[pub] = ephSigner
	}

	userAccount, _, err := c.Program.UserAccountPDA(owner)
	if err != nil {
		return nil, err
	}
	snaps, err := c.snapshots(ctx, userAccount)
	if err != nil {
		return nil, err
	}
	if _, err := snaps[0].Status().ApplyInitialize(); err != nil {
		return nil, err
	}

	vkHash, err := note.MasterViewingKeyHash(ws.MasterViewingKey)
	if err != nil {
		return nil, err
	}
	witness := zk.RegistrationWitness{
		Owner:            owner,
		EncryptionPubkey: ws.X25519Public,
		ViewingKeyHash:   vkHash,
		MasterViewingKey: ws.MasterViewingKey,
	}
	bundle, err := zk.ProveRegistrationBundle(ctx, c.Prover, witness)
	if err != nil {
		return nil, err
	}

	method := "register_confidential"
	if anonymous {
		method = "register_anonymous"
	}
	instructions := []solana.Instruction{
		c.Program.initializeUserAccountIx(c.Signer.PublicKey(), owner, userAccount, ws.X25519Public),
		c.Program.registerIx(method, owner, userAccount, bundle),
		c.Program.registerViewingKeyIx(owner, userAccount, vkHash),
	}
	return c.Assembler.Assemble(ctx, c.Signer, instructions, mode, extraSigners)
}

// ConvertToShared clears the account's MPC-only encryption so both
// counterparties can read the balance.
func (c *Client) ConvertToShared(ctx context.Context, mode SubmitMode) (*Submission, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	owner := c.Signer.PublicKey()
	userAccount, _, err := c.Program.UserAccountPDA(owner)
	if err != nil {
		return nil, err
	}
	snaps, err := c.snapshots(ctx, userAccount)
	if err != nil {
		return nil, err
	}
	if _, err := snaps[0].Status().ApplyConvertToShared(); err != nil {
		return nil, err
	}
	ix := c.Program.convertToSharedIx(owner, userAccount)
	return c.Assembler.Assemble(ctx, c.Signer, []solana.Instruction{ix}, mode, nil)
}

// DepositRequest parameterizes one deposit into the mixing pool.
type DepositRequest struct {
	Amount uint64

	// Recipient is who may later claim. Zero means the wallet itself.
	Recipient solana.Pubkey

	// Hidden keeps the amount out of instruction data and public inputs.
	Hidden bool

	// Mint selects the asset; zero means the native asset.
	Mint solana.Pubkey

	// GenerationIndex namespaces this deposit's secrets. Zero draws a
	// fresh random index.
	GenerationIndex protocol.Bytes32

	Mode SubmitMode
}

// Deposit inserts a commitment for the recipient into the pool and returns
// the artifact the matching claim will need. The artifact's insertion
// index is filled from the indexer once the commitment lands; callers
// persist and update it.
func (c *Client) Deposit(ctx context.Context, req DepositRequest) (*Submission, *protocol.DepositArtifact, error) {
	if err := c.validate(); err != nil {
		return nil, nil, err
	}
	if req.Amount == 0 {
		return nil, nil, fmt.Errorf("%w: zero deposit amount", protocol.ErrPrecondition)
	}
	if req.Mode == nil {
		return nil, nil, fmt.Errorf("%w: missing submit mode", protocol.ErrConfiguration)
	}

	owner := c.Signer.PublicKey()
	recipient := req.Recipient
	if recipient.IsZero() {
		recipient = owner
	}

	derived, err := c.Program.deriveAccounts(owner)
	if err != nil {
		return nil, nil, err
	}
	snaps, err := c.snapshots(ctx, derived.UserAccount)
	if err != nil {
		return nil, nil, err
	}
	if err := snaps[0].Status().RequireActive(); err != nil {
		return nil, nil, err
	}

	ws, _, err := c.walletSecrets(ctx)
	if err != nil {
		return nil, nil, err
	}

	idx := req.GenerationIndex
	if idx.IsZero() {
		if idx, err = newGenerationIndex(); err != nil {
			return nil, nil, err
		}
	}

	breakdown, err := c.Fees.Split(req.Amount)
	if err != nil {
		return nil, nil, err
	}

	kind := protocol.OpDepositPublic
	if req.Hidden {
		kind = protocol.OpDepositHidden
	}
	tvk, err := note.TxViewingKey(ws.MasterViewingKey, kind, c.clock())
	if err != nil {
		return nil, nil, err
	}
	linker, err := note.DepositLinkerHash(tvk, recipient)
	if err != nil {
		return nil, nil, err
	}

	n := &note.Note{
		RandomSecret: ws.RandomSecret([32]byte(idx)),
		Nullifier:    ws.Nullifier([32]byte(idx)),
		Recipient:    recipient,
		Claimable:    breakdown.Claimable,
		ViewingKey:   ws.MasterViewingKey,
	}
	commitment, err := n.Commitment()
	if err != nil {
		return nil, nil, err
	}

	// Encrypt the amount to the cluster under a per-deposit ephemeral key.
	ephPriv, ephPub, err := ws.EphemeralX25519([32]byte(idx))
	if err != nil {
		return nil, nil, err
	}
	envelope, err := cipher.SharedSecret(ephPriv, c.ClusterEncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	encAmount, nonce, err := cipher.EncryptAmount(envelope, breakdown.Claimable)
	if err != nil {
		return nil, nil, err
	}

	witness := zk.DepositWitness{
		Commitment:       commitment,
		DepositLinker:    linker,
		TxViewingKey:     tvk,
		Amount:           breakdown.Claimable,
		RandomSecret:     n.RandomSecret,
		Nullifier:        n.Nullifier,
		Recipient:        recipient,
		MasterViewingKey: ws.MasterViewingKey,
	}
	bundle, err := zk.ProveDepositBundle(ctx, c.Prover, witness, req.Hidden)
	if err != nil {
		return nil, nil, err
	}

	params := depositParams{
		Commitment:      commitment,
		LinkerHash:      linker,
		EncryptedAmount: encAmount,
		Nonce:           nonce,
		EphemeralPubkey: ephPub,
		Amount:          req.Amount,
		Hidden:          req.Hidden,
	}
	var ix solana.Instruction
	if req.Mint.IsZero() {
		ix = c.Program.depositIx(owner, derived, params, bundle)
	} else {
		depositorATA, err := c.Program.AssociatedTokenAddress(owner, req.Mint)
		if err != nil {
			return nil, nil, err
		}
		vaultATA, err := c.Program.AssociatedTokenAddress(derived.Vault, req.Mint)
		if err != nil {
			return nil, nil, err
		}
		ix = c.Program.depositTokenIx(owner, depositorATA, vaultATA, req.Mint, derived, params, bundle)
	}

	relayer, err := relayerAddress(ctx, req.Mode)
	if err != nil {
		return nil, nil, err
	}
	sub, err := c.Assembler.Assemble(ctx, c.Signer, []solana.Instruction{ix}, req.Mode, nil)
	if err != nil {
		return nil, nil, err
	}

	artifact := &protocol.DepositArtifact{
		GenerationIndex: idx,
		Time:            c.clock().UTC(),
		Relayer:         relayer,
		Claimable:       breakdown.Claimable,
	}
	return sub, artifact, nil
}

// ClaimRequest spends one deposit artifact to a destination address.
type ClaimRequest struct {
	Artifact  protocol.DepositArtifact
	Recipient solana.Pubkey
	Hidden    bool
	Mint      solana.Pubkey
	Mode      SubmitMode
}

// Claim proves membership of the deposited commitment and withdraws the
// claimable balance to the recipient. The nullifier hash is revealed here,
// exactly once.
func (c *Client) Claim(ctx context.Context, req ClaimRequest) (*Submission, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := req.Artifact.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrPrecondition, err)
	}
	if req.Recipient.IsZero() {
		return nil, fmt.Errorf("%w: missing claim recipient", protocol.ErrPrecondition)
	}
	if c.Indexer == nil {
		return nil, fmt.Errorf("%w: missing indexer client", protocol.ErrConfiguration)
	}

	derived, err := c.Program.deriveAccounts(req.Recipient)
	if err != nil {
		return nil, err
	}
	recipientUA, _, err := c.Program.UserAccountPDA(req.Recipient)
	if err != nil {
		return nil, err
	}
	snaps, err := c.snapshots(ctx, recipientUA)
	if err != nil {
		return nil, err
	}
	receiver := snaps[0]

	ws, _, err := c.walletSecrets(ctx)
	if err != nil {
		return nil, err
	}

	idx := [32]byte(req.Artifact.GenerationIndex)
	nullifier := ws.Nullifier(idx)
	nullifierHash, err := note.NullifierHash(nullifier)
	if err != nil {
		return nil, err
	}
	used, err := c.Indexer.NullifierUsed(ctx, nullifierHash)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, fmt.Errorf("%w: nullifier already spent", protocol.ErrPrecondition)
	}

	path, err := merkle.NewResolver(c.Indexer).Resolve(ctx, req.Artifact.InsertionIndex)
	if err != nil {
		return nil, err
	}

	kind := protocol.OpClaimPublic
	if req.Hidden {
		kind = protocol.OpClaimHidden
	}
	tvk, err := note.TxViewingKey(ws.MasterViewingKey, kind, c.clock())
	if err != nil {
		return nil, err
	}
	linker, err := note.ClaimLinkerHash(tvk, req.Artifact.InsertionIndex)
	if err != nil {
		return nil, err
	}

	breakdown, err := c.Fees.Split(req.Artifact.Claimable)
	if err != nil {
		return nil, err
	}

	witness := zk.ClaimWitness{
		Root:          path.Root,
		NullifierHash: nullifierHash,
		ClaimLinker:   linker,
		TxViewingKey:  tvk,
		Recipient:     req.Recipient,
		Amount:        req.Artifact.Claimable,
		RelayerFee:    breakdown.RelayerFee,
		Commission:    breakdown.Commission,

		// Commitment preimage: the note was bound to this wallet at
		// deposit time; the payout destination above may differ.
		RandomSecret:     ws.RandomSecret(idx),
		Nullifier:        nullifier,
		NoteRecipient:    c.Signer.PublicKey(),
		MasterViewingKey: ws.MasterViewingKey,
		Path:             path,
	}
	bundle, err := zk.ProveClaimBundle(ctx, c.Prover, witness, req.Hidden)
	if err != nil {
		return nil, err
	}

	status := receiver.Status()
	variant := selectReceiverVariant(status.BalanceInitialised(), !receiver.Exists || status.MXEEncrypted())

	params := claimParams{
		Root:          path.Root,
		NullifierHash: nullifierHash,
		LinkerHash:    linker,
		Recipient:     req.Recipient,
		Amount:        req.Artifact.Claimable,
		RelayerFee:    breakdown.RelayerFee,
		Commission:    breakdown.Commission,
		Hidden:        req.Hidden,
		Variant:       variant,
	}

	instructions, err := c.initInstructionsFor(receiver, req.Recipient, recipientUA, req.Mint)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, c.Program.claimIx(recipientUA, c.Signer.PublicKey(), derived, params, bundle))
	return c.Assembler.Assemble(ctx, c.Signer, instructions, req.Mode, nil)
}

// initInstructionsFor prepends receiver initialization when the receiver's
// encrypted account does not exist yet: user account first, then its token
// account.
func (c *Client) initInstructionsFor(receiver protocol.Snapshot, owner, userAccount solana.Pubkey, mint solana.Pubkey) ([]solana.Instruction, error) {
	if receiver.Exists {
		return nil, nil
	}
	ata, err := c.Program.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	payer := c.Signer.PublicKey()
	return []solana.Instruction{
		// Encryption pubkey is zero until the receiver registers; the
		// program accepts deposits to such accounts but blocks spends.
		c.Program.initializeUserAccountIx(payer, owner, userAccount, [32]byte{}),
		c.Program.initializeTokenAccountIx(payer, owner, ata, mint),
	}, nil
}

// TransferRequest moves confidential balance directly between two
// registered accounts.
type TransferRequest struct {
	Receiver solana.Pubkey
	Amount   uint64
	Mint     solana.Pubkey

	// GenerationIndex namespaces the transfer secrets; zero draws fresh.
	GenerationIndex protocol.Bytes32

	Mode SubmitMode
}

// Transfer sends confidential balance to the receiver, initializing the
// receiver's accounts when absent. Returns the artifact record for the
// caller to persist.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (*Submission, *protocol.DepositArtifact, error) {
	if err := c.validate(); err != nil {
		return nil, nil, err
	}
	if req.Receiver.IsZero() {
		return nil, nil, fmt.Errorf("%w: missing transfer receiver", protocol.ErrPrecondition)
	}
	if req.Amount == 0 {
		return nil, nil, fmt.Errorf("%w: zero transfer amount", protocol.ErrPrecondition)
	}

	sender := c.Signer.PublicKey()
	senderUA, _, err := c.Program.UserAccountPDA(sender)
	if err != nil {
		return nil, nil, err
	}
	receiverUA, _, err := c.Program.UserAccountPDA(req.Receiver)
	if err != nil {
		return nil, nil, err
	}

	snaps, err := c.snapshots(ctx, senderUA, receiverUA)
	if err != nil {
		return nil, nil, err
	}
	senderSnap, receiverSnap := snaps[0], snaps[1]
	if err := senderSnap.Status().RequireActive(); err != nil {
		return nil, nil, err
	}

	ws, cache, err := c.walletSecrets(ctx)
	if err != nil {
		return nil, nil, err
	}

	idx := req.GenerationIndex
	if idx.IsZero() {
		if idx, err = newGenerationIndex(); err != nil {
			return nil, nil, err
		}
	}

	breakdown, err := c.Fees.Split(req.Amount)
	if err != nil {
		return nil, nil, err
	}

	tvk, err := note.TxViewingKey(ws.MasterViewingKey, protocol.OpTransfer, c.clock())
	if err != nil {
		return nil, nil, err
	}
	linker, err := note.DepositLinkerHash(tvk, req.Receiver)
	if err != nil {
		return nil, nil, err
	}

	// Encrypt the amount to the receiver's key when it is registered and
	// shared with us, otherwise to the cluster under an ephemeral key.
	var envelope [32]byte
	var ephPub [32]byte
	if receiverSnap.Exists && receiverSnap.Account.EncryptionKey != ([32]byte{}) {
		envelope, err = cache.Secret(receiverSnap.Account.EncryptionKey)
		if err != nil {
			return nil, nil, err
		}
		ephPub = ws.X25519Public
	} else {
		ephPriv, pub, err := ws.EphemeralX25519([32]byte(idx))
		if err != nil {
			return nil, nil, err
		}
		envelope, err = cipher.SharedSecret(ephPriv, c.ClusterEncryptionKey)
		if err != nil {
			return nil, nil, err
		}
		ephPub = pub
	}
	encAmount, nonce, err := cipher.EncryptAmount(envelope, breakdown.Claimable)
	if err != nil {
		return nil, nil, err
	}

	receiverStatus := receiverSnap.Status()
	params := transferParams{
		EncryptedAmount: encAmount,
		Nonce:           nonce,
		EphemeralPubkey: ephPub,
		LinkerHash:      linker,
		Amount:          req.Amount,
		SenderShared:    !senderSnap.Status().MXEEncrypted(),
		Variant: selectReceiverVariant(
			receiverStatus.BalanceInitialised(),
			!receiverSnap.Exists || receiverStatus.MXEEncrypted(),
		),
	}

	instructions, err := c.initInstructionsFor(receiverSnap, req.Receiver, receiverUA, req.Mint)
	if err != nil {
		return nil, nil, err
	}
	instructions = append(instructions, c.Program.transferIx(sender, senderUA, receiverUA, params))

	relayer, err := relayerAddress(ctx, req.Mode)
	if err != nil {
		return nil, nil, err
	}
	sub, err := c.Assembler.Assemble(ctx, c.Signer, instructions, req.Mode, nil)
	if err != nil {
		return nil, nil, err
	}

	artifact := &protocol.DepositArtifact{
		GenerationIndex: idx,
		Time:            c.clock().UTC(),
		Relayer:         relayer,
		Claimable:       breakdown.Claimable,
	}
	return sub, artifact, nil
}
