package protocol

import (
	"errors"
	"testing"
)

func TestSplit_ZeroFeesPassThrough(t *testing.T) {
	fb, err := FeeConfig{}.Split(500_000_000)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if fb.Claimable != 500_000_000 {
		t.Fatalf("claimable=%d, want 500000000", fb.Claimable)
	}
	if fb.RelayerFee != 0 || fb.Commission != 0 {
		t.Fatalf("unexpected fees: %+v", fb)
	}
}

func TestSplit_Invariant(t *testing.T) {
	tests := []struct {
		amount uint64
		cfg    FeeConfig
	}{
		{1_000_000, FeeConfig{RelayerFee: 5_000, CommissionBps: 25}},
		{1, FeeConfig{CommissionBps: 9_999}},
		{7_777_777, FeeConfig{RelayerFee: 1, CommissionBps: 1}},
		{1_000_000_000, FeeConfig{RelayerFee: 5_000, CommissionBps: 10_000}},
	}
	for _, tt := range tests {
		fb, err := tt.cfg.Split(tt.amount)
		if err != nil {
			t.Fatalf("Split(%d, %+v): %v", tt.amount, tt.cfg, err)
		}
		if fb.Claimable+fb.RelayerFee+fb.Commission != tt.amount {
			t.Fatalf("invariant broken: %+v", fb)
		}
	}
}

func TestSplit_CommissionFloors(t *testing.T) {
	// 25 bps of 999_999 = 2499.9975 -> floor 2499.
	fb, err := FeeConfig{CommissionBps: 25}.Split(999_999)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if fb.Commission != 2_499 {
		t.Fatalf("commission=%d, want 2499", fb.Commission)
	}
	if fb.Remainder == 0 {
		t.Fatalf("remainder not tracked")
	}
}

func TestSplit_BoundsClamp(t *testing.T) {
	cfg := FeeConfig{CommissionBps: 1, CommissionLowerBound: 10_000, CommissionUpperBound: 20_000}
	fb, err := cfg.Split(1_000_000)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if fb.Commission != 10_000 {
		t.Fatalf("commission=%d, want lower bound 10000", fb.Commission)
	}

	cfg = FeeConfig{CommissionBps: 10_000, CommissionUpperBound: 1_000}
	fb, err = cfg.Split(1_000_000)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if fb.Commission != 1_000 {
		t.Fatalf("commission=%d, want upper bound 1000", fb.Commission)
	}
}

func TestSplit_Errors(t *testing.T) {
	if _, err := (FeeConfig{CommissionBps: 10_001}).Split(1); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("invalid bps err=%v, want ErrConfiguration", err)
	}
	if _, err := (FeeConfig{RelayerFee: 10}).Split(9); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("amount below relayer fee err=%v, want ErrPrecondition", err)
	}
	if _, err := (FeeConfig{CommissionLowerBound: 100}).Split(50); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("uncoverable commission err=%v, want ErrPrecondition", err)
	}
}

func TestPurposeFor(t *testing.T) {
	kinds := []OperationKind{
		OpRegisterConfidential, OpRegisterAnonymous, OpDepositHidden,
		OpDepositPublic, OpClaimHidden, OpClaimPublic, OpTransfer,
	}
	seen := map[Purpose][]OperationKind{}
	for _, k := range kinds {
		p, err := PurposeFor(k)
		if err != nil {
			t.Fatalf("PurposeFor(%s): %v", k, err)
		}
		seen[p] = append(seen[p], k)
	}
	// The two register variants share one purpose; everything else is 1:1.
	for p, ks := range seen {
		if p == PurposeRegister {
			if len(ks) != 2 {
				t.Fatalf("register purpose mapped to %v", ks)
			}
			continue
		}
		if len(ks) != 1 {
			t.Fatalf("purpose %d mapped to %v", p, ks)
		}
	}

	if _, err := PurposeFor(OperationKind(99)); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("unknown kind err=%v, want ErrConfiguration", err)
	}
}
