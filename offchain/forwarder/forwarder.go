// Package forwarder holds the transaction submission strategies: direct RPC
// submission, and relayer-mediated submission where a third party co-signs
// as fee payer.
package forwarder

import (
	"context"
	"errors"
	"fmt"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solanarpc"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

var ErrNilRPCClient = errors.New("nil rpc client")

// Forwarder submits a fully or partially signed transaction and returns the
// confirmation handle (transaction signature).
type Forwarder interface {
	Forward(ctx context.Context, signedTx []byte) (string, error)
}

// Direct submits straight to the ledger through the RPC client. The
// transaction must already carry every required signature.
type Direct struct {
	RPC           *solanarpc.Client
	SkipPreflight bool
}

func (d *Direct) Forward(ctx context.Context, signedTx []byte) (string, error) {
	if d == nil || d.RPC == nil {
		return "", fmt.Errorf("%w: %v", protocol.ErrConfiguration, ErrNilRPCClient)
	}
	sig, err := d.RPC.SendTransaction(ctx, signedTx, d.SkipPreflight)
	if err != nil {
		return "", fmt.Errorf("%w: %v", protocol.ErrNetwork, err)
	}
	return sig, nil
}
