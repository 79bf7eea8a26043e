package protocol

import "fmt"

// StatusFlags is the per-(owner, asset) confidentiality status bitset stored
// in the remote encrypted account. All bit tests and transitions live here;
// call sites never do bit arithmetic themselves.
type StatusFlags uint8

const (
	StatusInitialised StatusFlags = 1 << iota
	StatusMXEEncrypted
	StatusHasViewingKey
	StatusActive
	StatusRequiresDeposit
	StatusBalanceInitialised
)

func (f StatusFlags) Initialised() bool        { return f&StatusInitialised != 0 }
func (f StatusFlags) MXEEncrypted() bool       { return f&StatusMXEEncrypted != 0 }
func (f StatusFlags) HasViewingKey() bool      { return f&StatusHasViewingKey != 0 }
func (f StatusFlags) Active() bool             { return f&StatusActive != 0 }
func (f StatusFlags) RequiresDeposit() bool    { return f&StatusRequiresDeposit != 0 }
func (f StatusFlags) BalanceInitialised() bool { return f&StatusBalanceInitialised != 0 }

// RequireActive is the guard every operation runs before constructing any
// instruction. An inactive account where activity is required fails here,
// with zero side effects.
func (f StatusFlags) RequireActive() error {
	if !f.Initialised() {
		return fmt.Errorf("%w: account not initialised", ErrPrecondition)
	}
	if !f.Active() {
		return fmt.Errorf("%w: account not active", ErrPrecondition)
	}
	return nil
}

// ApplyInitialize models the first initializing instruction. Valid only for
// an absent or not-yet-initialised account.
func (f StatusFlags) ApplyInitialize() (StatusFlags, error) {
	if f.Initialised() {
		return f, fmt.Errorf("%w: account already initialised", ErrPrecondition)
	}
	return f | StatusInitialised | StatusMXEEncrypted | StatusActive, nil
}

// ApplyConvertToShared clears MXE_ENCRYPTED, the only bit any transition
// ever clears.
func (f StatusFlags) ApplyConvertToShared() (StatusFlags, error) {
	if !f.MXEEncrypted() {
		return f, fmt.Errorf("%w: account is not MXE-encrypted", ErrPrecondition)
	}
	return f &^ StatusMXEEncrypted, nil
}

func (f StatusFlags) ApplyRegisterViewingKey() (StatusFlags, error) {
	if !f.Initialised() || !f.Active() {
		return f, fmt.Errorf("%w: viewing key requires an initialised active account", ErrPrecondition)
	}
	return f | StatusHasViewingKey, nil
}

// ApplyBalanceFirstDeposit has no precondition: the first deposit marks the
// balance initialised no matter what else is set.
func (f StatusFlags) ApplyBalanceFirstDeposit() StatusFlags {
	return f | StatusBalanceInitialised
}
