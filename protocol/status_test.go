package protocol

import (
	"errors"
	"testing"
)

func TestApplyInitialize(t *testing.T) {
	got, err := StatusFlags(0).ApplyInitialize()
	if err != nil {
		t.Fatalf("ApplyInitialize: %v", err)
	}
	want := StatusInitialised | StatusMXEEncrypted | StatusActive
	if got != want {
		t.Fatalf("flags=%#02x, want %#02x", uint8(got), uint8(want))
	}

	_, err = got.ApplyInitialize()
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("re-initialize err=%v, want ErrPrecondition", err)
	}
}

func TestApplyConvertToShared_OnlyBitEverCleared(t *testing.T) {
	f := StatusInitialised | StatusMXEEncrypted | StatusActive | StatusHasViewingKey
	got, err := f.ApplyConvertToShared()
	if err != nil {
		t.Fatalf("ApplyConvertToShared: %v", err)
	}
	if got.MXEEncrypted() {
		t.Fatalf("MXE_ENCRYPTED still set")
	}
	if !got.Initialised() || !got.Active() || !got.HasViewingKey() {
		t.Fatalf("other bits lost: %#02x", uint8(got))
	}

	_, err = got.ApplyConvertToShared()
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("double convert err=%v, want ErrPrecondition", err)
	}
}

func TestApplyRegisterViewingKey_RequiresInitialisedActive(t *testing.T) {
	tests := []struct {
		name    string
		flags   StatusFlags
		wantErr bool
	}{
		{"zero", 0, true},
		{"initialised only", StatusInitialised, true},
		{"active only", StatusActive, true},
		{"initialised active", StatusInitialised | StatusActive, false},
	}
	for _, tt := range tests {
		got, err := tt.flags.ApplyRegisterViewingKey()
		if tt.wantErr {
			if !errors.Is(err, ErrPrecondition) {
				t.Fatalf("%s: err=%v, want ErrPrecondition", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if !got.HasViewingKey() {
			t.Fatalf("%s: HAS_VIEWING_KEY not set", tt.name)
		}
	}
}

func TestApplyBalanceFirstDeposit_AnyState(t *testing.T) {
	for _, f := range []StatusFlags{0, StatusInitialised, StatusActive | StatusMXEEncrypted} {
		if got := f.ApplyBalanceFirstDeposit(); !got.BalanceInitialised() {
			t.Fatalf("BALANCE_INITIALISED not set from %#02x", uint8(f))
		}
	}
}

func TestRequireActive(t *testing.T) {
	if err := (StatusInitialised | StatusActive).RequireActive(); err != nil {
		t.Fatalf("active account rejected: %v", err)
	}
	if err := StatusInitialised.RequireActive(); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("inactive err=%v, want ErrPrecondition", err)
	}
	if err := StatusFlags(0).RequireActive(); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("uninitialised err=%v, want ErrPrecondition", err)
	}
}
