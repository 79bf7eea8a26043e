package confidential

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// ArtifactStore fetches circuit artifacts (verifying keys) from an HTTP
// origin and caches them per circuit for the process lifetime. Artifacts
// are immutable per deployment, so there is no invalidation.
type ArtifactStore struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	cache map[Circuit][]byte
}

func NewArtifactStore(baseURL string, httpClient *http.Client) (*ArtifactStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: missing artifact store url", protocol.ErrConfiguration)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ArtifactStore{
		baseURL: baseURL,
		http:    httpClient,
		cache:   make(map[Circuit][]byte),
	}, nil
}

// VerifyingKey returns the verifying key bytes for one circuit, fetching
// on first use. Callers must not mutate the returned slice.
func (s *ArtifactStore) VerifyingKey(ctx context.Context, circuit Circuit) ([]byte, error) {
	if err := circuit.Valid(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if b, ok := s.cache[circuit]; ok {
		s.mu.Unlock()
		return b, nil
	}
	s.mu.Unlock()

	u := s.baseURL + "/artifacts/" + circuit.String() + "/verifying_key.bin"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: artifact fetch: %v", protocol.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: artifact fetch http %d", protocol.ErrNetwork, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: artifact read: %v", protocol.ErrNetwork, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty artifact for circuit %s", protocol.ErrNetwork, circuit)
	}

	s.mu.Lock()
	if prev, ok := s.cache[circuit]; ok {
		b = prev
	} else {
		s.cache[circuit] = b
	}
	s.mu.Unlock()
	return b, nil
}
