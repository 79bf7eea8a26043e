package forwarder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

var ErrMissingRelayerURL = errors.New("missing relayer url")

// Relayer is the relayer-mediated strategy: the wallet signs everything but
// the fee-payer slot, the relayer fills that slot and submits. The relayer's
// address is resolved once and used as the transaction fee payer.
type Relayer struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	address solana.Pubkey
}

func NewRelayer(baseURL string, httpClient *http.Client) *Relayer {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Relayer{baseURL: baseURL, http: httpClient}
}

type relayerInfoResponse struct {
	Address string `json:"address"`
}

// Address resolves the relayer's fee-payer address, memoizing the first
// successful answer. A relayer that cannot be resolved is an
// ErrUnresolvedDependency: the operation cannot pick a fee payer without it.
// Safe for concurrent use; the memo lock also collapses concurrent first
// calls into one fetch.
func (r *Relayer) Address(ctx context.Context) (solana.Pubkey, error) {
	if r == nil || r.baseURL == "" {
		return solana.Pubkey{}, fmt.Errorf("%w: %v", protocol.ErrUnresolvedDependency, ErrMissingRelayerURL)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.address.IsZero() {
		return r.address, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/relayer/info", nil)
	if err != nil {
		return solana.Pubkey{}, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return solana.Pubkey{}, fmt.Errorf("%w: %v", protocol.ErrUnresolvedDependency, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return solana.Pubkey{}, fmt.Errorf("%w: relayer http %d", protocol.ErrUnresolvedDependency, resp.StatusCode)
	}

	var info relayerInfoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return solana.Pubkey{}, fmt.Errorf("%w: decode relayer info: %v", protocol.ErrUnresolvedDependency, err)
	}
	pk, err := solana.ParsePubkey(info.Address)
	if err != nil {
		return solana.Pubkey{}, fmt.Errorf("%w: invalid relayer address %q", protocol.ErrUnresolvedDependency, info.Address)
	}

	r.address = pk
	return pk, nil
}

type forwardRequest struct {
	Transaction string `json:"transaction"`
}

type forwardResponse struct {
	Signature string `json:"signature"`
}

func (r *Relayer) Forward(ctx context.Context, signedTx []byte) (string, error) {
	if r == nil || r.baseURL == "" {
		return "", fmt.Errorf("%w: %v", protocol.ErrUnresolvedDependency, ErrMissingRelayerURL)
	}
	if len(signedTx) == 0 {
		return "", errors.New("empty tx")
	}

	body, err := json.Marshal(forwardRequest{
		Transaction: base64.StdEncoding.EncodeToString(signedTx),
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/relayer/forward", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", protocol.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: relayer http %d", protocol.ErrNetwork, resp.StatusCode)
	}

	var out forwardResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode forward response: %v", protocol.ErrNetwork, err)
	}
	if strings.TrimSpace(out.Signature) == "" {
		return "", fmt.Errorf("%w: relayer returned no signature", protocol.ErrNetwork)
	}
	return out.Signature, nil
}
