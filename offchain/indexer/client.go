// Package indexer talks to the external tree-indexing service that mirrors
// the on-chain commitment tree and nullifier registry.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

var (
	ErrMissingIndexerURL = errors.New("missing indexer url")
	ErrEmptySiblingList  = errors.New("indexer returned empty sibling list")
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

type siblingsResponse struct {
	Siblings []string `json:"siblings"`
}

// MerkleSiblings returns the ordered sibling hashes for the leaf at
// insertionIndex (leaf level first, root last). An empty list from the
// indexer is a hard failure; there is nothing to retry.
func (c *Client) MerkleSiblings(ctx context.Context, insertionIndex uint64) ([][32]byte, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("%w: %v", protocol.ErrConfiguration, ErrMissingIndexerURL)
	}

	u := c.baseURL + "/v1/merkle/siblings?index=" + strconv.FormatUint(insertionIndex, 10)
	var resp siblingsResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if len(resp.Siblings) == 0 {
		return nil, fmt.Errorf("%w: %v", protocol.ErrNetwork, ErrEmptySiblingList)
	}

	out := make([][32]byte, len(resp.Siblings))
	for i, s := range resp.Siblings {
		b, err := base58.Decode(strings.TrimSpace(s))
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("%w: invalid sibling hash %q", protocol.ErrNetwork, s)
		}
		copy(out[i][:], b)
	}
	return out, nil
}

type nullifierResponse struct {
	Used bool `json:"used"`
}

// NullifierUsed reports whether the double-spend registry has seen this
// nullifier hash.
func (c *Client) NullifierUsed(ctx context.Context, nullifierHash [32]byte) (bool, error) {
	if c == nil || c.baseURL == "" {
		return false, fmt.Errorf("%w: %v", protocol.ErrConfiguration, ErrMissingIndexerURL)
	}

	u := c.baseURL + "/v1/nullifier/" + url.PathEscape(base58.Encode(nullifierHash[:]))
	var resp nullifierResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return false, err
	}
	return resp.Used, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: indexer http %d", protocol.ErrNetwork, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode indexer response: %v", protocol.ErrNetwork, err)
	}
	return nil
}
