package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Stealf-finance/backend-stealf-sub001/confidential"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/forwarder"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/indexer"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solanarpc"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
	zk "github.com/Stealf-finance/backend-stealf-sub001/zk/confidential"
)

func envPubkey(name string) (solana.Pubkey, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return solana.Pubkey{}, fmt.Errorf("%w: %s is not set", protocol.ErrConfiguration, name)
	}
	pk, err := solana.ParsePubkey(v)
	if err != nil {
		return solana.Pubkey{}, fmt.Errorf("%w: %s: %v", protocol.ErrConfiguration, name, err)
	}
	return pk, nil
}

func buildProgram() (*confidential.Program, error) {
	p := &confidential.Program{}
	var err error
	if p.ID, err = envPubkey("STEALF_PROGRAM_ID"); err != nil {
		return nil, err
	}
	if p.MXE.Mempool, err = envPubkey("STEALF_MXE_MEMPOOL"); err != nil {
		return nil, err
	}
	if p.MXE.ExecPool, err = envPubkey("STEALF_MXE_EXECPOOL"); err != nil {
		return nil, err
	}
	if p.MXE.CompDef, err = envPubkey("STEALF_MXE_COMP_DEF"); err != nil {
		return nil, err
	}
	if p.MXE.Cluster, err = envPubkey("STEALF_MXE_CLUSTER"); err != nil {
		return nil, err
	}
	if p.MXE.SignPDA, err = envPubkey("STEALF_MXE_SIGN_PDA"); err != nil {
		return nil, err
	}
	if p.TokenProgram, err = envPubkey("STEALF_TOKEN_PROGRAM"); err != nil {
		return nil, err
	}
	if p.AssociatedTokenProgram, err = envPubkey("STEALF_ATA_PROGRAM"); err != nil {
		return nil, err
	}
	return p, nil
}

func buildSigner() (*confidential.LocalSigner, error) {
	raw := strings.TrimSpace(os.Getenv("STEALF_KEYPAIR_HEX"))
	if raw == "" {
		return nil, fmt.Errorf("%w: STEALF_KEYPAIR_HEX is not set", protocol.ErrConfiguration)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: STEALF_KEYPAIR_HEX: %v", protocol.ErrConfiguration, err)
	}
	switch len(b) {
	case ed25519.SeedSize:
		return confidential.NewLocalSigner(ed25519.NewKeyFromSeed(b))
	case ed25519.PrivateKeySize:
		return confidential.NewLocalSigner(ed25519.PrivateKey(b))
	default:
		return nil, fmt.Errorf("%w: STEALF_KEYPAIR_HEX must be a 32-byte seed or 64-byte key", protocol.ErrConfiguration)
	}
}

// buildClient wires the full client from the environment. Components that
// an operation may not need (indexer, prover, relayer) are attached only
// when configured; operations requiring them fail with a configuration
// error otherwise.
func buildClient() (*confidential.Client, error) {
	program, err := buildProgram()
	if err != nil {
		return nil, err
	}
	signer, err := buildSigner()
	if err != nil {
		return nil, err
	}
	rpc, err := solanarpc.ClientFromEnv()
	if err != nil {
		return nil, err
	}

	c := &confidential.Client{
		Program:   program,
		Signer:    signer,
		RPC:       rpc,
		Assembler: &confidential.Assembler{RPC: rpc, ComputeUnitLimit: 1_000_000, ComputeUnitPrice: 1},
	}

	clusterKey, err := envPubkey("STEALF_CLUSTER_KEY")
	if err != nil {
		return nil, err
	}
	c.ClusterEncryptionKey = [32]byte(clusterKey)

	if u := strings.TrimSpace(os.Getenv("STEALF_INDEXER_URL")); u != "" {
		c.Indexer = indexer.New(u, nil)
	}
	if u := strings.TrimSpace(os.Getenv("STEALF_PROVER_URL")); u != "" {
		prover, err := zk.NewServiceProver(u, nil)
		if err != nil {
			return nil, err
		}
		c.Prover = prover
	}
	return c, nil
}

// parseMode maps the -mode flag to a submit mode, resolving the relayer
// from the environment when requested.
func parseMode(mode string, rpc *solanarpc.Client) (confidential.SubmitMode, error) {
	switch mode {
	case "raw":
		return confidential.Raw{}, nil
	case "prepared":
		return confidential.Prepared{}, nil
	case "signed":
		return confidential.Signed{}, nil
	case "", "direct":
		return confidential.Forwarded{Forwarder: &forwarder.Direct{RPC: rpc}}, nil
	case "relayer":
		u := strings.TrimSpace(os.Getenv("STEALF_RELAYER_URL"))
		if u == "" {
			return nil, fmt.Errorf("%w: STEALF_RELAYER_URL is not set", protocol.ErrUnresolvedDependency)
		}
		return confidential.Relayed{Relayer: forwarder.NewRelayer(u, nil)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", protocol.ErrConfiguration, mode)
	}
}
