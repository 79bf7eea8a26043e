package protocol

import (
	"encoding/hex"
	"errors"
)

// Bytes32 is a 32-byte protocol value (generation index, commitment,
// nullifier hash) carried as hex in JSON.
type Bytes32 [32]byte

var errInvalidHex32 = errors.New("invalid 32-byte hex value")

func ParseBytes32Hex(s string) (Bytes32, error) {
	var out Bytes32
	if len(s) != 64 {
		return out, errInvalidHex32
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, errInvalidHex32
	}
	copy(out[:], b)
	return out, nil
}

func (b Bytes32) Hex() string {
	return hex.EncodeToString(b[:])
}

func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}
