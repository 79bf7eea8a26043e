package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrMissingGenerationIndex = errors.New("missing generation index")
	ErrInvalidArtifactJSON    = errors.New("invalid deposit artifact json")
)

// DepositArtifact is the record a deposit or transfer hands back to the
// caller. It is consumed exactly once by the matching claim; without it the
// deposited value cannot be recovered.
type DepositArtifact struct {
	GenerationIndex Bytes32
	Time            time.Time
	Relayer         string
	InsertionIndex  uint64
	Claimable       uint64
}

func (a DepositArtifact) Validate() error {
	if a.GenerationIndex.IsZero() {
		return ErrMissingGenerationIndex
	}
	return nil
}

type depositArtifactJSON struct {
	GenerationIndex string `json:"generation_index"`
	Time            int64  `json:"time_unix"`
	Relayer         string `json:"relayer,omitempty"`
	InsertionIndex  uint64 `json:"insertion_index"`
	Claimable       uint64 `json:"claimable_balance"`
}

func (a DepositArtifact) MarshalJSON() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(depositArtifactJSON{
		GenerationIndex: a.GenerationIndex.Hex(),
		Time:            a.Time.Unix(),
		Relayer:         a.Relayer,
		InsertionIndex:  a.InsertionIndex,
		Claimable:       a.Claimable,
	})
}

func (a *DepositArtifact) UnmarshalJSON(in []byte) error {
	var dto depositArtifactJSON
	if err := json.Unmarshal(in, &dto); err != nil {
		return ErrInvalidArtifactJSON
	}
	idx, err := ParseBytes32Hex(dto.GenerationIndex)
	if err != nil {
		return ErrInvalidArtifactJSON
	}
	a.GenerationIndex = idx
	a.Time = time.Unix(dto.Time, 0).UTC()
	a.Relayer = dto.Relayer
	a.InsertionIndex = dto.InsertionIndex
	a.Claimable = dto.Claimable
	return a.Validate()
}
