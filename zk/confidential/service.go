package confidential

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// ServiceProver delegates proving to an external HTTP proving service.
// Circuits can be disabled per deployment; proving against a disabled
// circuit fails before any network traffic.
type ServiceProver struct {
	baseURL  string
	http     *http.Client
	disabled map[Circuit]bool
}

// NewServiceProver builds a prover for the service at baseURL. disabled
// lists circuits this deployment has not rolled out.
func NewServiceProver(baseURL string, httpClient *http.Client, disabled ...Circuit) (*ServiceProver, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: missing proving service url", protocol.ErrConfiguration)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	d := make(map[Circuit]bool, len(disabled))
	for _, c := range disabled {
		d[c] = true
	}
	return &ServiceProver{baseURL: baseURL, http: httpClient, disabled: d}, nil
}

type proveResponse struct {
	Ax  string `json:"ax"`
	Ay  string `json:"ay"`
	Bx0 string `json:"bx0"`
	Bx1 string `json:"bx1"`
	By0 string `json:"by0"`
	By1 string `json:"by1"`
	Cx  string `json:"cx"`
	Cy  string `json:"cy"`
}

func decodeCoord(name, s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(b) > 32 {
		return out, fmt.Errorf("%w: proving service returned bad coordinate %s", protocol.ErrCrypto, name)
	}
	copy(out[32-len(b):], b)
	return out, nil
}

func (s *ServiceProver) prove(ctx context.Context, circuit Circuit, witness any) (*Proof, error) {
	if s.disabled[circuit] {
		return nil, fmt.Errorf("%w: circuit %s is disabled", protocol.ErrConfiguration, circuit)
	}

	body, err := json.Marshal(witness)
	if err != nil {
		return nil, fmt.Errorf("encode witness: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/prove/"+circuit.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: proving service: %v", protocol.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: proving service http %d", protocol.ErrNetwork, resp.StatusCode)
	}

	var pr proveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: decode proving response: %v", protocol.ErrNetwork, err)
	}

	var proof Proof
	for _, c := range []struct {
		name string
		src  string
		dst  *[32]byte
	}{
		{"ax", pr.Ax, &proof.Ax}, {"ay", pr.Ay, &proof.Ay},
		{"bx0", pr.Bx0, &proof.Bx0}, {"bx1", pr.Bx1, &proof.Bx1},
		{"by0", pr.By0, &proof.By0}, {"by1", pr.By1, &proof.By1},
		{"cx", pr.Cx, &proof.Cx}, {"cy", pr.Cy, &proof.Cy},
	} {
		v, err := decodeCoord(c.name, c.src)
		if err != nil {
			return nil, err
		}
		*c.dst = v
	}
	return &proof, nil
}

type registrationRequest struct {
	Owner            string `json:"owner"`
	EncryptionPubkey string `json:"encryptionPubkey"`
	ViewingKeyHash   string `json:"viewingKeyHash"`
	MasterViewingKey string `json:"masterViewingKey"`
}

func (s *ServiceProver) ProveRegistration(ctx context.Context, w RegistrationWitness) (*Proof, error) {
	return s.prove(ctx, CircuitRegistration, registrationRequest{
		Owner:            hex.EncodeToString(w.Owner[:]),
		EncryptionPubkey: hex.EncodeToString(w.EncryptionPubkey[:]),
		ViewingKeyHash:   hex.EncodeToString(w.ViewingKeyHash[:]),
		MasterViewingKey: hex.EncodeToString(w.MasterViewingKey[:]),
	})
}

type depositRequest struct {
	Commitment       string `json:"commitment"`
	DepositLinker    string `json:"depositLinker"`
	TxViewingKey     string `json:"txViewingKey"`
	Amount           uint64 `json:"amount"`
	RandomSecret     string `json:"randomSecret"`
	Nullifier        string `json:"nullifier"`
	Recipient        string `json:"recipient"`
	MasterViewingKey string `json:"masterViewingKey"`
}

func depositRequestFrom(w DepositWitness) depositRequest {
	return depositRequest{
		Commitment:       hex.EncodeToString(w.Commitment[:]),
		DepositLinker:    hex.EncodeToString(w.DepositLinker[:]),
		TxViewingKey:     hex.EncodeToString(w.TxViewingKey[:]),
		Amount:           w.Amount,
		RandomSecret:     hex.EncodeToString(w.RandomSecret[:]),
		Nullifier:        hex.EncodeToString(w.Nullifier[:]),
		Recipient:        hex.EncodeToString(w.Recipient[:]),
		MasterViewingKey: hex.EncodeToString(w.MasterViewingKey[:]),
	}
}

func (s *ServiceProver) ProveDepositHidden(ctx context.Context, w DepositWitness) (*Proof, error) {
	return s.prove(ctx, CircuitDepositHidden, depositRequestFrom(w))
}

func (s *ServiceProver) ProveDepositPublic(ctx context.Context, w DepositWitness) (*Proof, error) {
	return s.prove(ctx, CircuitDepositPublic, depositRequestFrom(w))
}

type claimRequest struct {
	Root             string   `json:"root"`
	NullifierHash    string   `json:"nullifierHash"`
	ClaimLinker      string   `json:"claimLinker"`
	TxViewingKey     string   `json:"txViewingKey"`
	Recipient        string   `json:"recipient"`
	Amount           uint64   `json:"amount"`
	RelayerFee       uint64   `json:"relayerFee"`
	Commission       uint64   `json:"commission"`
	RandomSecret     string   `json:"randomSecret"`
	Nullifier        string   `json:"nullifier"`
	NoteRecipient    string   `json:"noteRecipient"`
	MasterViewingKey string   `json:"masterViewingKey"`
	Siblings         []string `json:"siblings"`
	Bits             []bool   `json:"bits"`
}

func claimRequestFrom(w ClaimWitness) claimRequest {
	req := claimRequest{
		Root:             hex.EncodeToString(w.Root[:]),
		NullifierHash:    hex.EncodeToString(w.NullifierHash[:]),
		ClaimLinker:      hex.EncodeToString(w.ClaimLinker[:]),
		TxViewingKey:     hex.EncodeToString(w.TxViewingKey[:]),
		Recipient:        hex.EncodeToString(w.Recipient[:]),
		Amount:           w.Amount,
		RelayerFee:       w.RelayerFee,
		Commission:       w.Commission,
		RandomSecret:     hex.EncodeToString(w.RandomSecret[:]),
		Nullifier:        hex.EncodeToString(w.Nullifier[:]),
		NoteRecipient:    hex.EncodeToString(w.NoteRecipient[:]),
		MasterViewingKey: hex.EncodeToString(w.MasterViewingKey[:]),
	}
	if w.Path != nil {
		req.Siblings = make([]string, len(w.Path.Siblings))
		for i, sib := range w.Path.Siblings {
			req.Siblings[i] = hex.EncodeToString(sib[:])
		}
		req.Bits = w.Path.Bits
	}
	return req
}

func (s *ServiceProver) ProveClaimHidden(ctx context.Context, w ClaimWitness) (*Proof, error) {
	return s.prove(ctx, CircuitClaimHidden, claimRequestFrom(w))
}

func (s *ServiceProver) ProveClaimPublic(ctx context.Context, w ClaimWitness) (*Proof, error) {
	return s.prove(ctx, CircuitClaimPublic, claimRequestFrom(w))
}
