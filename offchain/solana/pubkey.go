package solana

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
)

type Pubkey [32]byte

var (
	ErrInvalidPubkey = errors.New("invalid pubkey")
)

func ParsePubkey(s string) (Pubkey, error) {
	var out Pubkey
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return out, ErrInvalidPubkey
	}

	if len(s) == 64 {
		b, err := hex.DecodeString(s)
		if err != nil || len(b) != 32 {
			return out, ErrInvalidPubkey
		}
		copy(out[:], b)
		return out, nil
	}

	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return out, ErrInvalidPubkey
	}
	copy(out[:], b)
	return out, nil
}

func (k Pubkey) Base58() string {
	return base58.Encode(k[:])
}

func (k Pubkey) IsZero() bool {
	return k == Pubkey{}
}

// Low and High split the pubkey into 16-byte halves for hash functions whose
// field elements cannot hold 32 bytes.
func (k Pubkey) Low() [16]byte {
	var out [16]byte
	copy(out[:], k[:16])
	return out
}

func (k Pubkey) High() [16]byte {
	var out [16]byte
	copy(out[:], k[16:])
	return out
}

