package confidential

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// recordingProver returns a shape-valid proof and remembers which circuit
// method ran.
type recordingProver struct {
	last Circuit
}

func (r *recordingProver) ProveRegistration(context.Context, RegistrationWitness) (*Proof, error) {
	r.last = CircuitRegistration
	return generatorProof(), nil
}

func (r *recordingProver) ProveDepositHidden(context.Context, DepositWitness) (*Proof, error) {
	r.last = CircuitDepositHidden
	return generatorProof(), nil
}

func (r *recordingProver) ProveDepositPublic(context.Context, DepositWitness) (*Proof, error) {
	r.last = CircuitDepositPublic
	return generatorProof(), nil
}

func (r *recordingProver) ProveClaimHidden(context.Context, ClaimWitness) (*Proof, error) {
	r.last = CircuitClaimHidden
	return generatorProof(), nil
}

func (r *recordingProver) ProveClaimPublic(context.Context, ClaimWitness) (*Proof, error) {
	r.last = CircuitClaimPublic
	return generatorProof(), nil
}

func TestProveDepositBundleSelectsCircuit(t *testing.T) {
	var w DepositWitness
	w.Amount = 100

	p := &recordingProver{}
	b, err := ProveDepositBundle(context.Background(), p, w, true)
	if err != nil {
		t.Fatalf("hidden deposit: %v", err)
	}
	if p.last != CircuitDepositHidden || b.Circuit != CircuitDepositHidden {
		t.Fatalf("hidden flag did not select the hidden circuit")
	}
	if len(b.PublicInputs) != 3 {
		t.Fatalf("hidden deposit public inputs = %d, want 3", len(b.PublicInputs))
	}

	b, err = ProveDepositBundle(context.Background(), p, w, false)
	if err != nil {
		t.Fatalf("public deposit: %v", err)
	}
	if p.last != CircuitDepositPublic {
		t.Fatalf("public flag did not select the public circuit")
	}
	if len(b.PublicInputs) != 4 {
		t.Fatalf("public deposit public inputs = %d, want 4", len(b.PublicInputs))
	}
}

func TestProveClaimBundleRequiresPath(t *testing.T) {
	var w ClaimWitness
	if _, err := ProveClaimBundle(context.Background(), &recordingProver{}, w, true); !errors.Is(err, ErrMissingMerklePath) {
		t.Fatalf("expected missing path error, got %v", err)
	}
}

func TestUnimplementedProver(t *testing.T) {
	var w RegistrationWitness
	if _, err := ProveRegistrationBundle(context.Background(), UnimplementedProver{}, w); !errors.Is(err, ErrProverUnavailable) {
		t.Fatalf("expected ErrProverUnavailable, got %v", err)
	}
}

func TestServiceProverDisabledCircuitSkipsNetwork(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p, err := NewServiceProver(srv.URL, srv.Client(), CircuitDepositHidden)
	if err != nil {
		t.Fatalf("new prover: %v", err)
	}
	_, err = p.ProveDepositHidden(context.Background(), DepositWitness{})
	if !errors.Is(err, protocol.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("disabled circuit reached the network")
	}
}

func TestServiceProverRoundTrip(t *testing.T) {
	proof := generatorProof()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/prove/deposit_hidden") {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"ax": hex.EncodeToString(proof.Ax[:]), "ay": hex.EncodeToString(proof.Ay[:]),
			"bx0": hex.EncodeToString(proof.Bx0[:]), "bx1": hex.EncodeToString(proof.Bx1[:]),
			"by0": hex.EncodeToString(proof.By0[:]), "by1": hex.EncodeToString(proof.By1[:]),
			"cx": hex.EncodeToString(proof.Cx[:]), "cy": hex.EncodeToString(proof.Cy[:]),
		})
	}))
	defer srv.Close()

	p, err := NewServiceProver(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new prover: %v", err)
	}
	got, err := p.ProveDepositHidden(context.Background(), DepositWitness{})
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if *got != *proof {
		t.Fatalf("proof round trip mismatch")
	}
}

func TestServiceProverSendsCommitmentPreimage(t *testing.T) {
	proof := generatorProof()
	bodies := map[string]map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode witness body: %v", err)
		}
		bodies[r.URL.Path] = body
		json.NewEncoder(w).Encode(map[string]string{
			"ax": hex.EncodeToString(proof.Ax[:]), "ay": hex.EncodeToString(proof.Ay[:]),
			"bx0": hex.EncodeToString(proof.Bx0[:]), "bx1": hex.EncodeToString(proof.Bx1[:]),
			"by0": hex.EncodeToString(proof.By0[:]), "by1": hex.EncodeToString(proof.By1[:]),
			"cx": hex.EncodeToString(proof.Cx[:]), "cy": hex.EncodeToString(proof.Cy[:]),
		})
	}))
	defer srv.Close()

	p, err := NewServiceProver(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new prover: %v", err)
	}

	var dw DepositWitness
	dw.MasterViewingKey = [16]byte{0xaa, 0xbb}
	if _, err := p.ProveDepositHidden(context.Background(), dw); err != nil {
		t.Fatalf("deposit prove: %v", err)
	}

	var cw ClaimWitness
	cw.MasterViewingKey = [16]byte{0xaa, 0xbb}
	cw.NoteRecipient[0] = 0x77
	if _, err := p.ProveClaimHidden(context.Background(), cw); err != nil {
		t.Fatalf("claim prove: %v", err)
	}

	dep := bodies["/v1/prove/deposit_hidden"]
	if dep["masterViewingKey"] != hex.EncodeToString(dw.MasterViewingKey[:]) {
		t.Fatalf("deposit body masterViewingKey = %v", dep["masterViewingKey"])
	}
	cl := bodies["/v1/prove/claim_hidden"]
	if cl["masterViewingKey"] != hex.EncodeToString(cw.MasterViewingKey[:]) {
		t.Fatalf("claim body masterViewingKey = %v", cl["masterViewingKey"])
	}
	if cl["noteRecipient"] != hex.EncodeToString(cw.NoteRecipient[:]) {
		t.Fatalf("claim body noteRecipient = %v", cl["noteRecipient"])
	}
}

func TestArtifactStoreCachesPerCircuit(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("vk-bytes-" + r.URL.Path))
	}))
	defer srv.Close()

	store, err := NewArtifactStore(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	a, err := store.VerifyingKey(context.Background(), CircuitClaimHidden)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	b, err := store.VerifyingKey(context.Background(), CircuitClaimHidden)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("cached artifact differs from fetched artifact")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 fetch for repeated circuit, got %d", calls.Load())
	}

	if _, err := store.VerifyingKey(context.Background(), CircuitClaimPublic); err != nil {
		t.Fatalf("other circuit: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected distinct fetch per circuit, got %d", calls.Load())
	}
}
