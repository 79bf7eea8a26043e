// Package merkle turns the indexer's sibling lists into proof-ready Merkle
// paths for the commitment tree.
package merkle

import (
	"context"
	"fmt"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/indexer"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

// Path is everything a claim circuit needs to prove tree membership. Bits
// holds the direction at each level, least significant bit of the insertion
// index first, so len(Bits) == len(Siblings).
type Path struct {
	Siblings [][32]byte
	Bits     []bool
	Root     [32]byte
}

// Resolver fetches and shapes Merkle paths. Zero value is unusable; build
// it with an indexer client.
type Resolver struct {
	idx *indexer.Client
}

func NewResolver(idx *indexer.Client) *Resolver {
	return &Resolver{idx: idx}
}

// Resolve fetches the sibling list for one insertion index. The indexer
// returns siblings bottom-up with the current root appended; a list of one
// element is a root-only path for a single-leaf tree.
func (r *Resolver) Resolve(ctx context.Context, insertionIndex uint64) (*Path, error) {
	if r.idx == nil {
		return nil, fmt.Errorf("%w: merkle resolver has no indexer client", protocol.ErrConfiguration)
	}
	nodes, err := r.idx.MerkleSiblings(ctx, insertionIndex)
	if err != nil {
		return nil, err
	}
	// MerkleSiblings guarantees a non-empty list.
	depth := len(nodes) - 1

	p := &Path{
		Siblings: nodes[:depth],
		Bits:     make([]bool, depth),
		Root:     nodes[depth],
	}
	for level := 0; level < depth; level++ {
		p.Bits[level] = insertionIndex>>uint(level)&1 == 1
	}
	return p, nil
}
