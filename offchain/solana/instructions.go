package solana

import (
	"encoding/binary"
)

var (
	SystemProgramID        = mustParsePubkey("11111111111111111111111111111111")
	ComputeBudgetProgramID = mustParsePubkey("ComputeBudget111111111111111111111111111111")
	InstructionsSysvarID   = mustParsePubkey("Sysvar1nstructions1111111111111111111111111")
)

func mustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func ComputeBudgetSetComputeUnitLimit(limit uint32) Instruction {
	var data [5]byte
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], limit)
	return Instruction{
		ProgramID: ComputeBudgetProgramID,
		Accounts:  nil,
		Data:      data[:],
	}
}

func ComputeBudgetSetComputeUnitPrice(microLamports uint64) Instruction {
	var data [9]byte
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return Instruction{
		ProgramID: ComputeBudgetProgramID,
		Accounts:  nil,
		Data:      data[:],
	}
}
