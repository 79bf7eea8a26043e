package protocol

import (
	"fmt"
	"math/bits"
)

type FeeBps uint16

const FeeBpsDenominator uint64 = 10_000

func (bps FeeBps) IsValid() bool {
	return uint64(bps) <= FeeBpsDenominator
}

// FeeConfig prices a deposit or claim: a flat relayer fee plus a commission
// in basis points applied to the post-relayer-fee amount. Nonzero bounds
// clamp the commission.
type FeeConfig struct {
	RelayerFee           uint64
	CommissionBps        FeeBps
	CommissionLowerBound uint64
	CommissionUpperBound uint64
}

// FeeBreakdown always satisfies Claimable + RelayerFee + Commission == Amount.
type FeeBreakdown struct {
	Amount     uint64
	RelayerFee uint64
	Commission uint64
	Claimable  uint64

	// Remainder is the sub-bps truncation lost to floor division, tracked
	// for the caller's accounting. It is already included in Claimable.
	Remainder uint64
}

// Split computes the claimable balance for amount under this configuration:
// claimable = amount − relayerFee − floor((amount−relayerFee)·bps/10000).
func (c FeeConfig) Split(amount uint64) (FeeBreakdown, error) {
	if !c.CommissionBps.IsValid() {
		return FeeBreakdown{}, fmt.Errorf("%w: commission bps %d out of range", ErrConfiguration, c.CommissionBps)
	}
	if c.CommissionUpperBound != 0 && c.CommissionLowerBound > c.CommissionUpperBound {
		return FeeBreakdown{}, fmt.Errorf("%w: commission bounds inverted", ErrConfiguration)
	}
	if c.RelayerFee > amount {
		return FeeBreakdown{}, fmt.Errorf("%w: amount %d below relayer fee %d", ErrPrecondition, amount, c.RelayerFee)
	}

	net := amount - c.RelayerFee

	var commission, remainder uint64
	if c.CommissionBps > 0 && net > 0 {
		hi, lo := bits.Mul64(net, uint64(c.CommissionBps))
		q, r := bits.Div64(hi, lo, FeeBpsDenominator)
		commission, remainder = q, r
	}
	if c.CommissionLowerBound != 0 && commission < c.CommissionLowerBound {
		commission = c.CommissionLowerBound
	}
	if c.CommissionUpperBound != 0 && commission > c.CommissionUpperBound {
		commission = c.CommissionUpperBound
	}
	if commission > net {
		return FeeBreakdown{}, fmt.Errorf("%w: amount %d cannot cover commission %d", ErrPrecondition, amount, commission)
	}

	return FeeBreakdown{
		Amount:     amount,
		RelayerFee: c.RelayerFee,
		Commission: commission,
		Claimable:  net - commission,
		Remainder:  remainder,
	}, nil
}
