package solana

import (
	"encoding/binary"
	"testing"
)

func TestComputeBudgetSetComputeUnitLimit(t *testing.T) {
	ix := ComputeBudgetSetComputeUnitLimit(1_400_000)
	if ix.ProgramID != ComputeBudgetProgramID {
		t.Fatalf("ProgramID mismatch")
	}
	if ix.Accounts != nil {
		t.Fatalf("Accounts must be nil")
	}
	if len(ix.Data) != 5 || ix.Data[0] != 2 {
		t.Fatalf("data=%x", ix.Data)
	}
	if got := binary.LittleEndian.Uint32(ix.Data[1:]); got != 1_400_000 {
		t.Fatalf("limit=%d, want 1400000", got)
	}
}

func TestComputeBudgetSetComputeUnitPrice(t *testing.T) {
	ix := ComputeBudgetSetComputeUnitPrice(10_000)
	if ix.ProgramID != ComputeBudgetProgramID {
		t.Fatalf("ProgramID mismatch")
	}
	if len(ix.Data) != 9 || ix.Data[0] != 3 {
		t.Fatalf("data=%x", ix.Data)
	}
	if got := binary.LittleEndian.Uint64(ix.Data[1:]); got != 10_000 {
		t.Fatalf("price=%d, want 10000", got)
	}
}
