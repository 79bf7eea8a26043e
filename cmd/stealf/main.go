package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, argv []string) error {
	if len(argv) == 0 || argv[0] == "-h" || argv[0] == "--help" || argv[0] == "help" {
		printUsage(os.Stdout)
		return nil
	}

	switch argv[0] {
	case "account":
		return cmdAccount(ctx, argv[1:])
	case "register":
		return cmdRegister(ctx, argv[1:])
	case "deposit":
		return cmdDeposit(ctx, argv[1:])
	case "claim":
		return cmdClaim(ctx, argv[1:])
	case "transfer":
		return cmdTransfer(ctx, argv[1:])
	case "convert":
		return cmdConvert(ctx, argv[1:])
	default:
		return fmt.Errorf("unknown command: %s", argv[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "stealf: confidential transfer client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  stealf account [-owner <pubkey>]")
	fmt.Fprintln(w, "  stealf register [-anonymous] [-mode <mode>]")
	fmt.Fprintln(w, "  stealf deposit -amount <n> [-hidden] [-recipient <pubkey>] [-mint <pubkey>] [-mode <mode>]")
	fmt.Fprintln(w, "  stealf claim -artifact <file> -recipient <pubkey> [-hidden] [-mode <mode>]")
	fmt.Fprintln(w, "  stealf transfer -receiver <pubkey> -amount <n> [-mint <pubkey>] [-mode <mode>]")
	fmt.Fprintln(w, "  stealf convert [-mode <mode>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  account   Decode the encrypted account status for an owner (default: the configured wallet).")
	fmt.Fprintln(w, "  register  Create and activate the wallet's encrypted account.")
	fmt.Fprintln(w, "  deposit   Deposit value into the pool; prints the deposit artifact JSON to persist.")
	fmt.Fprintln(w, "  claim     Spend a persisted deposit artifact to a destination address.")
	fmt.Fprintln(w, "  transfer  Move confidential balance directly to another registered account.")
	fmt.Fprintln(w, "  convert   Convert the account from MPC-only encryption to shared visibility.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Modes: raw, prepared, signed, direct, relayer (default: direct).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  SOLANA_RPC_URL, STEALF_PROGRAM_ID, STEALF_KEYPAIR_HEX, STEALF_CLUSTER_KEY,")
	fmt.Fprintln(w, "  STEALF_INDEXER_URL, STEALF_PROVER_URL, STEALF_RELAYER_URL,")
	fmt.Fprintln(w, "  STEALF_MXE_MEMPOOL, STEALF_MXE_EXECPOOL, STEALF_MXE_COMP_DEF,")
	fmt.Fprintln(w, "  STEALF_MXE_CLUSTER, STEALF_MXE_SIGN_PDA, STEALF_TOKEN_PROGRAM,")
	fmt.Fprintln(w, "  STEALF_ATA_PROGRAM")
}
