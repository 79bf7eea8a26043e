package cipher

import "sync"

// SecretCache memoizes X25519 shared secrets per peer public key so repeat
// operations against the same cluster or counterparty skip the scalar
// multiplication. Safe for concurrent use.
type SecretCache struct {
	mu      sync.Mutex
	priv    [32]byte
	secrets map[[32]byte][32]byte
}

// NewSecretCache builds a cache bound to one local private key.
func NewSecretCache(priv [32]byte) *SecretCache {
	return &SecretCache{priv: priv, secrets: make(map[[32]byte][32]byte)}
}

// Secret returns the shared secret for the peer, computing and storing it
// on first use. Concurrent callers for the same peer may race to compute
// but always observe the same value.
func (c *SecretCache) Secret(peerPub [32]byte) ([32]byte, error) {
	c.mu.Lock()
	if s, ok := c.secrets[peerPub]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	s, err := SharedSecret(c.priv, peerPub)
	if err != nil {
		return [32]byte{}, err
	}

	c.mu.Lock()
	if prev, ok := c.secrets[peerPub]; ok {
		s = prev
	} else {
		c.secrets[peerPub] = s
	}
	c.mu.Unlock()
	return s, nil
}
