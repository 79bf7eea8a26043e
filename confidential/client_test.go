package confidential

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"golang.org/x/crypto/curve25519"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/indexer"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solanarpc"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
	zk "github.com/Stealf-finance/backend-stealf-sub001/zk/confidential"
)

// fakeLedger backs a JSON-RPC server with a fixed account map and counts
// transaction submissions.
type fakeLedger struct {
	accounts map[string][]byte
	sends    atomic.Int64
}

func (l *fakeLedger) serve(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}

		var result any
		switch req.Method {
		case "getMultipleAccounts":
			var params []json.RawMessage
			json.Unmarshal(req.Params, &params)
			var pubkeys []string
			json.Unmarshal(params[0], &pubkeys)
			values := make([]any, len(pubkeys))
			for i, pk := range pubkeys {
				raw, ok := l.accounts[pk]
				if !ok {
					values[i] = nil
					continue
				}
				values[i] = map[string]any{
					"data": []any{base64.StdEncoding.EncodeToString(raw), "base64"},
				}
			}
			result = map[string]any{"value": values}
		case "getLatestBlockhash":
			var bh solana.Pubkey
			bh[0] = 0xbb
			result = map[string]any{"value": map[string]any{"blockhash": bh.Base58()}}
		case "sendTransaction":
			l.sends.Add(1)
			result = "5signature"
		default:
			t.Errorf("unexpected rpc method %s", req.Method)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

// countingProver returns shape-valid proofs and counts invocations.
type countingProver struct {
	calls atomic.Int64

	lastDeposit zk.DepositWitness
	lastClaim   zk.ClaimWitness
}

func testProofPoints() *zk.Proof {
	_, _, g1, g2 := bn254.Generators()
	var pr zk.Proof
	pr.Ax = g1.X.Bytes()
	pr.Ay = g1.Y.Bytes()
	pr.Cx = g1.X.Bytes()
	pr.Cy = g1.Y.Bytes()
	pr.Bx0 = g2.X.A0.Bytes()
	pr.Bx1 = g2.X.A1.Bytes()
	pr.By0 = g2.Y.A0.Bytes()
	pr.By1 = g2.Y.A1.Bytes()
	return &pr
}

func (p *countingProver) ProveRegistration(context.Context, zk.RegistrationWitness) (*zk.Proof, error) {
	p.calls.Add(1)
	return testProofPoints(), nil
}

func (p *countingProver) ProveDepositHidden(_ context.Context, w zk.DepositWitness) (*zk.Proof, error) {
	p.calls.Add(1)
	p.lastDeposit = w
	return testProofPoints(), nil
}

func (p *countingProver) ProveDepositPublic(_ context.Context, w zk.DepositWitness) (*zk.Proof, error) {
	p.calls.Add(1)
	p.lastDeposit = w
	return testProofPoints(), nil
}

func (p *countingProver) ProveClaimHidden(_ context.Context, w zk.ClaimWitness) (*zk.Proof, error) {
	p.calls.Add(1)
	p.lastClaim = w
	return testProofPoints(), nil
}

func (p *countingProver) ProveClaimPublic(_ context.Context, w zk.ClaimWitness) (*zk.Proof, error) {
	p.calls.Add(1)
	p.lastClaim = w
	return testProofPoints(), nil
}

func testProgram(t *testing.T) *Program {
	t.Helper()
	mk := func(b byte) solana.Pubkey {
		var pk solana.Pubkey
		pk[0] = b
		pk[31] = b
		return pk
	}
	return &Program{
		ID: mk(1),
		MXE: MXEAccounts{
			Mempool:  mk(2),
			ExecPool: mk(3),
			CompDef:  mk(4),
			Cluster:  mk(5),
			SignPDA:  mk(6),
		},
		TokenProgram:           mk(7),
		AssociatedTokenProgram: mk(8),
	}
}

type testEnv struct {
	client *Client
	ledger *fakeLedger
	prover *countingProver
	signer *LocalSigner
}

func newTestEnv(t *testing.T, ledger *fakeLedger, idx *indexer.Client) *testEnv {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := NewLocalSigner(priv)
	if err != nil {
		t.Fatalf("local signer: %v", err)
	}

	srv := ledger.serve(t)
	t.Cleanup(srv.Close)
	rpc := solanarpc.New(srv.URL, srv.Client())

	var clusterPriv [32]byte
	if _, err := rand.Read(clusterPriv[:]); err != nil {
		t.Fatalf("cluster key: %v", err)
	}
	clusterPub, err := curve25519.X25519(clusterPriv[:], curve25519.Basepoint)
	if err != nil {
		t.Fatalf("cluster pub: %v", err)
	}

	prover := &countingProver{}
	c := &Client{
		Program:   testProgram(t),
		Signer:    signer,
		RPC:       rpc,
		Indexer:   idx,
		Prover:    prover,
		Assembler: &Assembler{RPC: rpc, ComputeUnitLimit: 400_000, ComputeUnitPrice: 1},
	}
	copy(c.ClusterEncryptionKey[:], clusterPub)
	return &testEnv{client: c, ledger: ledger, prover: prover, signer: signer}
}

// activeAccount encodes a registered, active encrypted account for owner.
func activeAccount(owner solana.Pubkey, extra protocol.StatusFlags) []byte {
	var enc [32]byte
	enc[0] = 0x42
	return protocol.EncodeEncryptedAccount(protocol.EncryptedAccount{
		Owner:         [32]byte(owner),
		EncryptionKey: enc,
		Status:        protocol.StatusInitialised | protocol.StatusMXEEncrypted | protocol.StatusActive | extra,
		Bump:          254,
	})
}

func TestDepositInactiveAccountIssuesNoMutatingCalls(t *testing.T) {
	ledger := &fakeLedger{accounts: map[string][]byte{}}
	env := newTestEnv(t, ledger, nil)

	_, _, err := env.client.Deposit(context.Background(), DepositRequest{
		Amount: 500_000_000,
		Mode:   Raw{},
	})
	if !errors.Is(err, protocol.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition for absent account, got %v", err)
	}
	if env.ledger.sends.Load() != 0 {
		t.Fatalf("precondition failure sent %d transactions", env.ledger.sends.Load())
	}
	if env.prover.calls.Load() != 0 {
		t.Fatalf("precondition failure still requested a proof")
	}
}

func TestDepositZeroFeesFullClaimable(t *testing.T) {
	ledger := &fakeLedger{accounts: map[string][]byte{}}
	env := newTestEnv(t, ledger, nil)

	ua, _, err := env.client.Program.UserAccountPDA(env.signer.PublicKey())
	if err != nil {
		t.Fatalf("user account pda: %v", err)
	}
	ledger.accounts[ua.Base58()] = activeAccount(env.signer.PublicKey(), 0)

	sub, artifact, err := env.client.Deposit(context.Background(), DepositRequest{
		Amount: 500_000_000,
		Hidden: true,
		Mode:   Raw{},
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if artifact.Claimable != 500_000_000 {
		t.Fatalf("claimable = %d, want full amount with zero fees", artifact.Claimable)
	}
	if artifact.GenerationIndex.IsZero() {
		t.Fatalf("artifact missing generation index")
	}
	if sub.Signature != "" {
		t.Fatalf("raw mode must not submit, got signature %q", sub.Signature)
	}
	if env.ledger.sends.Load() != 0 {
		t.Fatalf("raw mode sent %d transactions", env.ledger.sends.Load())
	}
	if env.prover.calls.Load() != 1 {
		t.Fatalf("expected exactly one proof request, got %d", env.prover.calls.Load())
	}
}

func indexerServer(t *testing.T, nullifierUsed bool) *indexer.Client {
	t.Helper()
	var root [32]byte
	root[0] = 0x11
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/merkle/siblings":
			json.NewEncoder(w).Encode(map[string]any{
				"siblings": []string{solana.Pubkey(root).Base58()},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{"used": nullifierUsed})
		}
	}))
	t.Cleanup(srv.Close)
	return indexer.New(srv.URL, srv.Client())
}

func claimArtifact() protocol.DepositArtifact {
	var idx protocol.Bytes32
	idx[31] = 1
	return protocol.DepositArtifact{
		GenerationIndex: idx,
		Claimable:       500_000_000,
	}
}

func TestClaimRejectsReusedNullifier(t *testing.T) {
	ledger := &fakeLedger{accounts: map[string][]byte{}}
	env := newTestEnv(t, ledger, indexerServer(t, true))

	var recipient solana.Pubkey
	recipient[0] = 0x99

	_, err := env.client.Claim(context.Background(), ClaimRequest{
		Artifact:  claimArtifact(),
		Recipient: recipient,
		Hidden:    true,
		Mode:      Raw{},
	})
	if !errors.Is(err, protocol.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition for reused nullifier, got %v", err)
	}
	if env.ledger.sends.Load() != 0 {
		t.Fatalf("rejected claim sent %d transactions", env.ledger.sends.Load())
	}
	if env.prover.calls.Load() != 0 {
		t.Fatalf("rejected claim still requested a proof")
	}
}

func TestClaimFreshNullifierAssembles(t *testing.T) {
	ledger := &fakeLedger{accounts: map[string][]byte{}}
	env := newTestEnv(t, ledger, indexerServer(t, false))

	var recipient solana.Pubkey
	recipient[0] = 0x99

	sub, err := env.client.Claim(context.Background(), ClaimRequest{
		Artifact:  claimArtifact(),
		Recipient: recipient,
		Hidden:    true,
		Mode:      Raw{},
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(sub.Transaction) == 0 {
		t.Fatalf("claim produced empty transaction")
	}
	if env.prover.calls.Load() != 1 {
		t.Fatalf("expected one proof request, got %d", env.prover.calls.Load())
	}
}

func TestProofWitnessesCarryNotePreimage(t *testing.T) {
	ledger := &fakeLedger{accounts: map[string][]byte{}}
	env := newTestEnv(t, ledger, indexerServer(t, false))

	ua, _, err := env.client.Program.UserAccountPDA(env.signer.PublicKey())
	if err != nil {
		t.Fatalf("user account pda: %v", err)
	}
	ledger.accounts[ua.Base58()] = activeAccount(env.signer.PublicKey(), 0)

	if _, _, err := env.client.Deposit(context.Background(), DepositRequest{
		Amount: 500_000_000,
		Hidden: true,
		Mode:   Raw{},
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if env.prover.lastDeposit.MasterViewingKey == ([16]byte{}) {
		t.Fatalf("deposit witness missing the master viewing key")
	}

	var payout solana.Pubkey
	payout[0] = 0x99
	if _, err := env.client.Claim(context.Background(), ClaimRequest{
		Artifact:  claimArtifact(),
		Recipient: payout,
		Hidden:    true,
		Mode:      Raw{},
	}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	w := env.prover.lastClaim
	if w.MasterViewingKey != env.prover.lastDeposit.MasterViewingKey {
		t.Fatalf("claim witness viewing key differs from deposit witness")
	}
	if w.NoteRecipient != env.signer.PublicKey() {
		t.Fatalf("claim witness note recipient = %s, want the wallet", w.NoteRecipient.Base58())
	}
	if w.Recipient != payout {
		t.Fatalf("claim witness payout recipient = %s, want %s", w.Recipient.Base58(), payout.Base58())
	}
}

func TestTransferAbsentReceiverPrependsInits(t *testing.T) {
	ledger := &fakeLedger{accounts: map[string][]byte{}}
	env := newTestEnv(t, ledger, nil)
	c := env.client

	var receiver solana.Pubkey
	receiver[0] = 0x77
	receiverUA, _, err := c.Program.UserAccountPDA(receiver)
	if err != nil {
		t.Fatalf("receiver pda: %v", err)
	}
	var mint solana.Pubkey
	mint[0] = 0x55

	ixs, err := c.initInstructionsFor(protocol.Snapshot{}, receiver, receiverUA, mint)
	if err != nil {
		t.Fatalf("init instructions: %v", err)
	}
	if len(ixs) != 2 {
		t.Fatalf("absent receiver got %d init instructions, want 2", len(ixs))
	}
	userInit := anchorDiscriminator("initialize_user_account")
	tokenInit := anchorDiscriminator("initialize_token_account")
	for i := 0; i < 8; i++ {
		if ixs[0].Data[i] != userInit[i] {
			t.Fatalf("first init instruction is not the user account init")
		}
		if ixs[1].Data[i] != tokenInit[i] {
			t.Fatalf("second init instruction is not the token account init")
		}
	}

	// Registered receivers get no init instructions.
	snap, err := protocol.Interpret(activeAccount(receiver, 0))
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	got, err := c.initInstructionsFor(snap, receiver, receiverUA, mint)
	if err != nil {
		t.Fatalf("init instructions: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("registered receiver got %d init instructions, want 0", len(got))
	}
}

func TestTransferToAbsentReceiver(t *testing.T) {
	ledger := &fakeLedger{accounts: map[string][]byte{}}
	env := newTestEnv(t, ledger, nil)
	c := env.client

	senderUA, _, err := c.Program.UserAccountPDA(env.signer.PublicKey())
	if err != nil {
		t.Fatalf("sender pda: %v", err)
	}
	ledger.accounts[senderUA.Base58()] = activeAccount(env.signer.PublicKey(), 0)

	var receiver solana.Pubkey
	receiver[0] = 0x77
	var mint solana.Pubkey
	mint[0] = 0x55

	sub, artifact, err := c.Transfer(context.Background(), TransferRequest{
		Receiver: receiver,
		Amount:   1_000_000,
		Mint:     mint,
		Mode:     Raw{},
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(sub.Transaction) == 0 {
		t.Fatalf("transfer produced empty transaction")
	}
	if artifact.Claimable != 1_000_000 {
		t.Fatalf("artifact claimable = %d, want full amount", artifact.Claimable)
	}
	receiverUA, _, err := c.Program.UserAccountPDA(receiver)
	if err != nil {
		t.Fatalf("receiver pda: %v", err)
	}
	found := false
	for _, pk := range sub.Message.AccountKeys {
		if pk == receiverUA {
			found = true
		}
	}
	if !found {
		t.Fatalf("receiver user account missing from transaction")
	}
}

func TestRegisterTwiceRejected(t *testing.T) {
	ledger := &fakeLedger{accounts: map[string][]byte{}}
	env := newTestEnv(t, ledger, nil)
	c := env.client

	ua, _, err := c.Program.UserAccountPDA(env.signer.PublicKey())
	if err != nil {
		t.Fatalf("pda: %v", err)
	}
	ledger.accounts[ua.Base58()] = activeAccount(env.signer.PublicKey(), 0)

	if _, err := c.RegisterConfidential(context.Background(), Raw{}); !errors.Is(err, protocol.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition registering twice, got %v", err)
	}
}
