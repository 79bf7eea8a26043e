package protocol

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Remote encrypted account layout, fixed by the on-chain program:
//
//	discriminator        8
//	owner                32
//	encryption pubkey    32
//	encrypted balance    32
//	balance nonce        16
//	total deposits       8   (u64 LE)
//	total withdrawals    8   (u64 LE)
//	created at           8   (i64 LE)
//	last updated         8   (i64 LE)
//	status               1
//	bump                 1
const (
	accountDiscriminatorLen = 8

	offOwner            = accountDiscriminatorLen
	offEncryptionKey    = offOwner + 32
	offEncryptedBalance = offEncryptionKey + 32
	offBalanceNonce     = offEncryptedBalance + 32
	offTotalDeposits    = offBalanceNonce + 16
	offTotalWithdrawals = offTotalDeposits + 8
	offCreatedAt        = offTotalWithdrawals + 8
	offLastUpdated      = offCreatedAt + 8
	offStatus           = offLastUpdated + 8
	offBump             = offStatus + 1

	EncryptedAccountLen = offBump + 1
)

// accountDiscriminator is the anchor-style account tag:
// sha256("account:EncryptedAccount")[0:8].
var accountDiscriminator = func() [accountDiscriminatorLen]byte {
	var out [accountDiscriminatorLen]byte
	sum := sha256.Sum256([]byte("account:EncryptedAccount"))
	copy(out[:], sum[:accountDiscriminatorLen])
	return out
}()

type EncryptedAccount struct {
	Owner            [32]byte
	EncryptionKey    [32]byte
	EncryptedBalance [32]byte
	BalanceNonce     [16]byte
	TotalDeposits    uint64
	TotalWithdrawals uint64
	CreatedAt        int64
	LastUpdated      int64
	Status           StatusFlags
	Bump             uint8
}

// Snapshot is the normalized view of a remote account read: either absent
// (status all-zero) or present with decoded contents. Every branch decision
// downstream runs on this, never on raw bytes.
type Snapshot struct {
	Exists  bool
	Account EncryptedAccount
}

func (s Snapshot) Status() StatusFlags {
	if !s.Exists {
		return 0
	}
	return s.Account.Status
}

// Interpret decodes a remote account read. nil (account absent) yields the
// all-zero snapshot; any present payload must match the fixed layout exactly.
func Interpret(raw []byte) (Snapshot, error) {
	if raw == nil {
		return Snapshot{}, nil
	}
	if len(raw) != EncryptedAccountLen {
		return Snapshot{}, fmt.Errorf("%w: account data length %d, want %d", ErrDecode, len(raw), EncryptedAccountLen)
	}
	for i := 0; i < accountDiscriminatorLen; i++ {
		if raw[i] != accountDiscriminator[i] {
			return Snapshot{}, fmt.Errorf("%w: account discriminator mismatch", ErrDecode)
		}
	}

	var acct EncryptedAccount
	copy(acct.Owner[:], raw[offOwner:offEncryptionKey])
	copy(acct.EncryptionKey[:], raw[offEncryptionKey:offEncryptedBalance])
	copy(acct.EncryptedBalance[:], raw[offEncryptedBalance:offBalanceNonce])
	copy(acct.BalanceNonce[:], raw[offBalanceNonce:offTotalDeposits])
	acct.TotalDeposits = binary.LittleEndian.Uint64(raw[offTotalDeposits:offTotalWithdrawals])
	acct.TotalWithdrawals = binary.LittleEndian.Uint64(raw[offTotalWithdrawals:offCreatedAt])
	acct.CreatedAt = int64(binary.LittleEndian.Uint64(raw[offCreatedAt:offLastUpdated]))
	acct.LastUpdated = int64(binary.LittleEndian.Uint64(raw[offLastUpdated:offStatus]))
	acct.Status = StatusFlags(raw[offStatus])
	acct.Bump = raw[offBump]

	const knownFlags = StatusInitialised | StatusMXEEncrypted | StatusHasViewingKey |
		StatusActive | StatusRequiresDeposit | StatusBalanceInitialised
	if acct.Status&^knownFlags != 0 {
		return Snapshot{}, fmt.Errorf("%w: unknown status bits %#02x", ErrDecode, uint8(acct.Status))
	}

	return Snapshot{Exists: true, Account: acct}, nil
}

// EncodeEncryptedAccount is the inverse of Interpret. It exists for tests and
// local tooling; the canonical encoder is the on-chain program.
func EncodeEncryptedAccount(acct EncryptedAccount) []byte {
	out := make([]byte, EncryptedAccountLen)
	copy(out[:accountDiscriminatorLen], accountDiscriminator[:])
	copy(out[offOwner:], acct.Owner[:])
	copy(out[offEncryptionKey:], acct.EncryptionKey[:])
	copy(out[offEncryptedBalance:], acct.EncryptedBalance[:])
	copy(out[offBalanceNonce:], acct.BalanceNonce[:])
	binary.LittleEndian.PutUint64(out[offTotalDeposits:], acct.TotalDeposits)
	binary.LittleEndian.PutUint64(out[offTotalWithdrawals:], acct.TotalWithdrawals)
	binary.LittleEndian.PutUint64(out[offCreatedAt:], uint64(acct.CreatedAt))
	binary.LittleEndian.PutUint64(out[offLastUpdated:], uint64(acct.LastUpdated))
	out[offStatus] = byte(acct.Status)
	out[offBump] = acct.Bump
	return out
}
