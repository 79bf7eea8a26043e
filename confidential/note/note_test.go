package note

import (
	"errors"
	"testing"
	"time"

	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

func sampleNote() *Note {
	n := &Note{Claimable: 500_000_000}
	n.RandomSecret[31] = 0x11
	n.Nullifier[31] = 0x22
	for i := range n.Recipient {
		n.Recipient[i] = byte(i + 1)
	}
	for i := range n.ViewingKey {
		n.ViewingKey[i] = byte(0xa0 + i)
	}
	return n
}

func TestCommitmentDeterministic(t *testing.T) {
	n := sampleNote()
	a, err := n.Commitment()
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	b, err := n.Commitment()
	if err != nil {
		t.Fatalf("commitment again: %v", err)
	}
	if a != b {
		t.Fatalf("commitment not deterministic")
	}
	if a == ([32]byte{}) {
		t.Fatalf("commitment is all zero")
	}
}

func TestCommitmentSensitiveToEachInput(t *testing.T) {
	base := sampleNote()
	want, err := base.Commitment()
	if err != nil {
		t.Fatalf("base commitment: %v", err)
	}

	mutations := map[string]func(*Note){
		"random secret": func(n *Note) { n.RandomSecret[30] ^= 1 },
		"nullifier":     func(n *Note) { n.Nullifier[30] ^= 1 },
		"recipient low": func(n *Note) { n.Recipient[3] ^= 1 },
		"recipient high": func(n *Note) {
			n.Recipient[20] ^= 1
		},
		"amount":      func(n *Note) { n.Claimable++ },
		"viewing key": func(n *Note) { n.ViewingKey[0] ^= 1 },
	}
	for name, mutate := range mutations {
		n := sampleNote()
		mutate(n)
		got, err := n.Commitment()
		if err != nil {
			t.Fatalf("%s: commitment: %v", name, err)
		}
		if got == want {
			t.Fatalf("%s: commitment unchanged after mutation", name)
		}
	}
}

func TestCommitmentRejectsOversizedInput(t *testing.T) {
	n := sampleNote()
	for i := range n.RandomSecret {
		n.RandomSecret[i] = 0xff
	}
	if _, err := n.Commitment(); !errors.Is(err, protocol.ErrCrypto) {
		t.Fatalf("expected ErrCrypto for out-of-field random secret, got %v", err)
	}

	n = sampleNote()
	for i := range n.Nullifier {
		n.Nullifier[i] = 0xff
	}
	if _, err := n.Commitment(); !errors.Is(err, protocol.ErrCrypto) {
		t.Fatalf("expected ErrCrypto for out-of-field nullifier, got %v", err)
	}
}

func TestNullifierHashDiffersFromNullifier(t *testing.T) {
	var nul [32]byte
	nul[31] = 0x22
	h, err := NullifierHash(nul)
	if err != nil {
		t.Fatalf("nullifier hash: %v", err)
	}
	if h == nul {
		t.Fatalf("hash equals preimage")
	}
	h2, err := NullifierHash(nul)
	if err != nil {
		t.Fatalf("nullifier hash again: %v", err)
	}
	if h != h2 {
		t.Fatalf("nullifier hash not deterministic")
	}
}

func TestTxViewingKeySecondGranularity(t *testing.T) {
	var mvk [16]byte
	mvk[0] = 0x5a
	at := time.Date(2025, 6, 15, 12, 30, 45, 0, time.UTC)

	a, err := TxViewingKey(mvk, protocol.OpDepositHidden, at)
	if err != nil {
		t.Fatalf("tx viewing key: %v", err)
	}
	b, err := TxViewingKey(mvk, protocol.OpDepositHidden, at.Add(500*time.Millisecond))
	if err != nil {
		t.Fatalf("tx viewing key sub-second: %v", err)
	}
	if a != b {
		t.Fatalf("sub-second offset changed the viewing key")
	}

	c, err := TxViewingKey(mvk, protocol.OpDepositHidden, at.Add(time.Second))
	if err != nil {
		t.Fatalf("tx viewing key next second: %v", err)
	}
	if a == c {
		t.Fatalf("next second produced identical viewing key")
	}

	d, err := TxViewingKey(mvk, protocol.OpClaimHidden, at)
	if err != nil {
		t.Fatalf("tx viewing key other purpose: %v", err)
	}
	if a == d {
		t.Fatalf("different purpose produced identical viewing key")
	}
}

func TestLinkerHashes(t *testing.T) {
	var tvk [32]byte
	tvk[31] = 9
	var addr solana.Pubkey
	addr[0] = 1

	dep, err := DepositLinkerHash(tvk, addr)
	if err != nil {
		t.Fatalf("deposit linker: %v", err)
	}
	var other solana.Pubkey
	other[0] = 2
	dep2, err := DepositLinkerHash(tvk, other)
	if err != nil {
		t.Fatalf("deposit linker other recipient: %v", err)
	}
	if dep == dep2 {
		t.Fatalf("deposit linker insensitive to recipient")
	}

	clm, err := ClaimLinkerHash(tvk, 4)
	if err != nil {
		t.Fatalf("claim linker: %v", err)
	}
	clm2, err := ClaimLinkerHash(tvk, 5)
	if err != nil {
		t.Fatalf("claim linker other index: %v", err)
	}
	if clm == clm2 {
		t.Fatalf("claim linker insensitive to insertion index")
	}
	if dep == clm {
		t.Fatalf("deposit and claim linker hashes collide")
	}
}

func TestLinkerHashRejectsOutOfFieldViewingKey(t *testing.T) {
	var tvk [32]byte
	for i := range tvk {
		tvk[i] = 0xff
	}
	if _, err := DepositLinkerHash(tvk, solana.Pubkey{}); !errors.Is(err, protocol.ErrCrypto) {
		t.Fatalf("expected ErrCrypto, got %v", err)
	}
}
