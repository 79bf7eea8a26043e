package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Stealf-finance/backend-stealf-sub001/confidential"
	"github.com/Stealf-finance/backend-stealf-sub001/offchain/solana"
	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type submissionOut struct {
	Transaction string `json:"transaction_base64"`
	Signature   string `json:"signature,omitempty"`
}

func submissionJSON(sub *confidential.Submission) submissionOut {
	return submissionOut{
		Transaction: base64.StdEncoding.EncodeToString(sub.Transaction),
		Signature:   sub.Signature,
	}
}

func cmdAccount(ctx context.Context, argv []string) error {
	fs := flag.NewFlagSet("account", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var owner string
	fs.StringVar(&owner, "owner", "", "Owner pubkey (default: configured wallet)")
	if err := fs.Parse(argv); err != nil {
		return err
	}

	c, err := buildClient()
	if err != nil {
		return err
	}
	ownerPk := c.Signer.PublicKey()
	if owner != "" {
		if ownerPk, err = solana.ParsePubkey(owner); err != nil {
			return err
		}
	}
	ua, bump, err := c.Program.UserAccountPDA(ownerPk)
	if err != nil {
		return err
	}
	raw, err := c.RPC.AccountDataBase64(ctx, ua.Base58())
	if err != nil {
		raw = nil
	}
	snap, err := protocol.Interpret(raw)
	if err != nil {
		return err
	}

	out := map[string]any{
		"owner":        ownerPk.Base58(),
		"user_account": ua.Base58(),
		"bump":         bump,
		"exists":       snap.Exists,
	}
	if snap.Exists {
		s := snap.Status()
		out["status"] = map[string]bool{
			"initialised":         s.Initialised(),
			"mxe_encrypted":       s.MXEEncrypted(),
			"has_viewing_key":     s.HasViewingKey(),
			"active":              s.Active(),
			"requires_deposit":    s.RequiresDeposit(),
			"balance_initialised": s.BalanceInitialised(),
		}
		out["total_deposits"] = snap.Account.TotalDeposits
		out["total_withdrawals"] = snap.Account.TotalWithdrawals
	}
	return printJSON(out)
}

func cmdRegister(ctx context.Context, argv []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var anonymous bool
	var mode string
	fs.BoolVar(&anonymous, "anonymous", false, "Register under an ephemeral unlinkable key")
	fs.StringVar(&mode, "mode", "direct", "Submission mode")
	if err := fs.Parse(argv); err != nil {
		return err
	}

	c, err := buildClient()
	if err != nil {
		return err
	}
	m, err := parseMode(mode, c.RPC)
	if err != nil {
		return err
	}

	var sub *confidential.Submission
	if anonymous {
		sub, err = c.RegisterAnonymous(ctx, m)
	} else {
		sub, err = c.RegisterConfidential(ctx, m)
	}
	if err != nil {
		return err
	}
	return printJSON(submissionJSON(sub))
}

func cmdDeposit(ctx context.Context, argv []string) error {
	fs := flag.NewFlagSet("deposit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		amount    uint64
		hidden    bool
		recipient string
		mint      string
		mode      string
	)
	fs.Uint64Var(&amount, "amount", 0, "Amount in base units")
	fs.BoolVar(&hidden, "hidden", false, "Hide the amount")
	fs.StringVar(&recipient, "recipient", "", "Claim recipient (default: self)")
	fs.StringVar(&mint, "mint", "", "Token mint (default: native asset)")
	fs.StringVar(&mode, "mode", "direct", "Submission mode")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("-amount is required")
	}

	c, err := buildClient()
	if err != nil {
		return err
	}
	m, err := parseMode(mode, c.RPC)
	if err != nil {
		return err
	}

	req := confidential.DepositRequest{Amount: amount, Hidden: hidden, Mode: m}
	if recipient != "" {
		if req.Recipient, err = solana.ParsePubkey(recipient); err != nil {
			return err
		}
	}
	if mint != "" {
		if req.Mint, err = solana.ParsePubkey(mint); err != nil {
			return err
		}
	}

	sub, artifact, err := c.Deposit(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"submission": submissionJSON(sub),
		"artifact":   artifact,
	})
}

func cmdClaim(ctx context.Context, argv []string) error {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		artifactPath string
		recipient    string
		hidden       bool
		mint         string
		mode         string
	)
	fs.StringVar(&artifactPath, "artifact", "", "Path to the deposit artifact JSON")
	fs.StringVar(&recipient, "recipient", "", "Destination address")
	fs.BoolVar(&hidden, "hidden", false, "Hide the amount")
	fs.StringVar(&mint, "mint", "", "Token mint (default: native asset)")
	fs.StringVar(&mode, "mode", "direct", "Submission mode")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if artifactPath == "" || recipient == "" {
		return fmt.Errorf("-artifact and -recipient are required")
	}

	raw, err := os.ReadFile(artifactPath)
	if err != nil {
		return err
	}
	var artifact protocol.DepositArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return err
	}

	c, err := buildClient()
	if err != nil {
		return err
	}
	m, err := parseMode(mode, c.RPC)
	if err != nil {
		return err
	}

	req := confidential.ClaimRequest{Artifact: artifact, Hidden: hidden, Mode: m}
	if req.Recipient, err = solana.ParsePubkey(recipient); err != nil {
		return err
	}
	if mint != "" {
		if req.Mint, err = solana.ParsePubkey(mint); err != nil {
			return err
		}
	}

	sub, err := c.Claim(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(submissionJSON(sub))
}

func cmdTransfer(ctx context.Context, argv []string) error {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		receiver string
		amount   uint64
		mint     string
		mode     string
	)
	fs.StringVar(&receiver, "receiver", "", "Receiver wallet address")
	fs.Uint64Var(&amount, "amount", 0, "Amount in base units")
	fs.StringVar(&mint, "mint", "", "Token mint (default: native asset)")
	fs.StringVar(&mode, "mode", "direct", "Submission mode")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if receiver == "" || amount == 0 {
		return fmt.Errorf("-receiver and -amount are required")
	}

	c, err := buildClient()
	if err != nil {
		return err
	}
	m, err := parseMode(mode, c.RPC)
	if err != nil {
		return err
	}

	req := confidential.TransferRequest{Amount: amount, Mode: m}
	if req.Receiver, err = solana.ParsePubkey(receiver); err != nil {
		return err
	}
	if mint != "" {
		if req.Mint, err = solana.ParsePubkey(mint); err != nil {
			return err
		}
	}

	sub, artifact, err := c.Transfer(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"submission": submissionJSON(sub),
		"artifact":   artifact,
	})
}

func cmdConvert(ctx context.Context, argv []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var mode string
	fs.StringVar(&mode, "mode", "direct", "Submission mode")
	if err := fs.Parse(argv); err != nil {
		return err
	}

	c, err := buildClient()
	if err != nil {
		return err
	}
	m, err := parseMode(mode, c.RPC)
	if err != nil {
		return err
	}
	sub, err := c.ConvertToShared(ctx, m)
	if err != nil {
		return err
	}
	return printJSON(submissionJSON(sub))
}
