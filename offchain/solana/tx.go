package solana

import (
	"crypto/ed25519"
	"errors"
)

var (
	ErrMissingSigner  = errors.New("missing signer for required signature")
	ErrNoInstructions = errors.New("no instructions")
)

// PlaceholderBlockhash marks a transaction that still needs a recent
// blockhash patched in before signing (the "raw" submission mode).
var PlaceholderBlockhash = [32]byte{}

type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

type messageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledMessage is a serialized legacy message plus the metadata needed to
// attach signatures later. Signatures may arrive in stages: the wallet signs
// first, a relayer fee payer may countersign afterwards.
type CompiledMessage struct {
	Bytes       []byte
	AccountKeys []Pubkey

	numRequiredSignatures int
}

// CompileLegacy orders accounts (writable signers, readonly signers,
// writable non-signers, readonly non-signers; first-touch order within each
// class), then serializes header, account keys, blockhash and instructions.
func CompileLegacy(recentBlockhash [32]byte, feePayer Pubkey, instructions []Instruction) (CompiledMessage, error) {
	if len(instructions) == 0 {
		return CompiledMessage{}, ErrNoInstructions
	}

	infos := make(map[Pubkey]*accountInfo, 32)
	seen := 0

	touch := func(pk Pubkey, signer, writable bool) {
		if ai, ok := infos[pk]; ok {
			ai.IsSigner = ai.IsSigner || signer
			ai.IsWritable = ai.IsWritable || writable
			return
		}
		infos[pk] = &accountInfo{
			Pubkey:     pk,
			IsSigner:   signer,
			IsWritable: writable,
			FirstSeen:  seen,
		}
		seen++
	}

	// Fee payer must be a writable signer.
	touch(feePayer, true, true)

	for _, ix := range instructions {
		touch(ix.ProgramID, false, false)
		for _, am := range ix.Accounts {
			touch(am.Pubkey, am.IsSigner, am.IsWritable)
		}
	}

	signersWritable := make([]*accountInfo, 0, 8)
	signersReadonly := make([]*accountInfo, 0, 8)
	nonsignersWritable := make([]*accountInfo, 0, 16)
	nonsignersReadonly := make([]*accountInfo, 0, 16)

	for _, ai := range infos {
		if ai.IsSigner {
			if ai.IsWritable {
				signersWritable = append(signersWritable, ai)
			} else {
				signersReadonly = append(signersReadonly, ai)
			}
			continue
		}
		if ai.IsWritable {
			nonsignersWritable = append(nonsignersWritable, ai)
		} else {
			nonsignersReadonly = append(nonsignersReadonly, ai)
		}
	}

	sortByFirstSeen(signersWritable)
	sortByFirstSeen(signersReadonly)
	sortByFirstSeen(nonsignersWritable)
	sortByFirstSeen(nonsignersReadonly)

	accountKeys := make([]Pubkey, 0, len(infos))
	for _, ai := range signersWritable {
		accountKeys = append(accountKeys, ai.Pubkey)
	}
	for _, ai := range signersReadonly {
		accountKeys = append(accountKeys, ai.Pubkey)
	}
	for _, ai := range nonsignersWritable {
		accountKeys = append(accountKeys, ai.Pubkey)
	}
	for _, ai := range nonsignersReadonly {
		accountKeys = append(accountKeys, ai.Pubkey)
	}

	h := messageHeader{
		NumRequiredSignatures:       uint8(len(signersWritable) + len(signersReadonly)),
		NumReadonlySignedAccounts:   uint8(len(signersReadonly)),
		NumReadonlyUnsignedAccounts: uint8(len(nonsignersReadonly)),
	}

	indexOf := make(map[Pubkey]uint8, len(accountKeys))
	for i, pk := range accountKeys {
		indexOf[pk] = uint8(i)
	}

	out := make([]byte, 0, 512)
	out = append(out, h.NumRequiredSignatures, h.NumReadonlySignedAccounts, h.NumReadonlyUnsignedAccounts)
	out = append(out, encodeShortVecLen(len(accountKeys))...)
	for _, pk := range accountKeys {
		out = append(out, pk[:]...)
	}
	out = append(out, recentBlockhash[:]...)

	out = append(out, encodeShortVecLen(len(instructions))...)
	for _, ix := range instructions {
		out = append(out, indexOf[ix.ProgramID])
		out = append(out, encodeShortVecLen(len(ix.Accounts))...)
		for _, am := range ix.Accounts {
			out = append(out, indexOf[am.Pubkey])
		}
		out = append(out, encodeShortVecLen(len(ix.Data))...)
		out = append(out, ix.Data...)
	}

	return CompiledMessage{
		Bytes:                 out,
		AccountKeys:           accountKeys,
		numRequiredSignatures: int(h.NumRequiredSignatures),
	}, nil
}

// RequiredSigners returns the pubkeys whose signatures the transaction
// needs, in signature-slot order. Slot 0 is the fee payer.
func (m CompiledMessage) RequiredSigners() []Pubkey {
	out := make([]Pubkey, m.numRequiredSignatures)
	copy(out, m.AccountKeys[:m.numRequiredSignatures])
	return out
}

// Assemble serializes the wire transaction, placing each provided signature
// in its slot. Missing signers get all-zero signatures so a later party
// (relayer fee payer) can fill them in.
func (m CompiledMessage) Assemble(sigs map[Pubkey][64]byte) []byte {
	out := make([]byte, 0, 1+m.numRequiredSignatures*64+len(m.Bytes))
	out = append(out, encodeShortVecLen(m.numRequiredSignatures)...)
	for i := 0; i < m.numRequiredSignatures; i++ {
		sig := sigs[m.AccountKeys[i]]
		out = append(out, sig[:]...)
	}
	out = append(out, m.Bytes...)
	return out
}

// SignWith produces signatures for every required signer whose private key
// is present. Keys that are not required signers are ignored.
func (m CompiledMessage) SignWith(keys map[Pubkey]ed25519.PrivateKey) map[Pubkey][64]byte {
	out := make(map[Pubkey][64]byte, len(keys))
	for i := 0; i < m.numRequiredSignatures; i++ {
		pk := m.AccountKeys[i]
		priv, ok := keys[pk]
		if !ok {
			continue
		}
		var sig [64]byte
		copy(sig[:], ed25519.Sign(priv, m.Bytes))
		out[pk] = sig
	}
	return out
}

// BuildAndSignLegacyTransaction compiles and fully signs in one step. Every
// required signer must be present.
func BuildAndSignLegacyTransaction(
	recentBlockhash [32]byte,
	feePayer Pubkey,
	signers map[Pubkey]ed25519.PrivateKey,
	instructions []Instruction,
) ([]byte, error) {
	msg, err := CompileLegacy(recentBlockhash, feePayer, instructions)
	if err != nil {
		return nil, err
	}
	sigs := msg.SignWith(signers)
	if len(sigs) != msg.numRequiredSignatures {
		return nil, ErrMissingSigner
	}
	return msg.Assemble(sigs), nil
}

type accountInfo struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
	FirstSeen  int
}

func sortByFirstSeen(infos []*accountInfo) {
	for i := 0; i < len(infos); i++ {
		for j := i + 1; j < len(infos); j++ {
			if infos[j].FirstSeen < infos[i].FirstSeen {
				infos[i], infos[j] = infos[j], infos[i]
			}
		}
	}
}
