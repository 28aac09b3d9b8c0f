// txroot-cli computes and checks Merkle roots offline and queries a txrootd node.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Klingon-tech/txroot/internal/rpc"
	"github.com/Klingon-tech/txroot/internal/rpcclient"
	"github.com/Klingon-tech/txroot/pkg/block"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/tx"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// errInvalidBlock makes the validate command exit non-zero.
var errInvalidBlock = errors.New("block is invalid")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := "http://127.0.0.1:8645"
	hasherName := ""

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--hasher" && len(args) > 1:
			hasherName = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--hasher="):
			hasherName = args[0][len("--hasher="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	// Offline commands.
	switch cmd {
	case "hash", "root", "validate", "assemble":
		tree, err := treeFor(hasherName)
		if err != nil {
			fatal("%v", err)
		}
		if err := runOffline(os.Stdout, tree, cmd, cmdArgs); err != nil {
			if errors.Is(err, errInvalidBlock) {
				os.Exit(2)
			}
			fatal("%v", err)
		}
		return
	case "help", "--help", "-h":
		usage()
		return
	}

	client := rpcclient.New(rpcURL)
	switch cmd {
	case "status":
		cmdStatus(client)
	case "block":
		cmdBlock(client, cmdArgs)
	case "blocks":
		cmdBlocks(client, cmdArgs)
	case "verify":
		cmdVerify(client, cmdArgs)
	case "submit":
		cmdSubmit(client, cmdArgs)
	case "mempool":
		cmdMempool(client)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: txroot-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8645)
  --hasher <name>     Merkle hasher for offline commands: %s (default: blake3)

Offline commands:
  hash <from,to,amount>           Print the leaf digest of a transaction
  root <file|-> [--levels]        Print the Merkle root of a transaction batch
  validate <block.json|->         Check a block against its Merkle root
  assemble <file|-> [--out <f>]   Build a block from a transaction batch

Node commands:
  status                          Show pipeline statistics
  block <root> | --seq <n>        Show a stored block
  blocks [--limit <n>]            List recent blocks
  verify <root>                   Re-validate a stored block
  submit <from,to,amount>         Submit a transaction
  mempool                         Show mempool stats

Batch files are one from,to,amount per line, a JSON array (.json)
or a CBOR array (.cbor).
`, strings.Join(merkle.Names(), ", "))
}

func treeFor(name string) (*merkle.Tree, error) {
	if name == "" {
		return merkle.Default, nil
	}
	h, err := merkle.HasherByName(name)
	if err != nil {
		return nil, err
	}
	return merkle.New(h), nil
}

// ── Offline ─────────────────────────────────────────────────────────────

func runOffline(w io.Writer, tree *merkle.Tree, cmd string, args []string) error {
	switch cmd {
	case "hash":
		return cmdHash(w, tree, args)
	case "root":
		return cmdRoot(w, tree, args)
	case "validate":
		return cmdValidate(w, tree, args)
	case "assemble":
		return cmdAssemble(w, tree, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHash(w io.Writer, tree *merkle.Tree, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: txroot-cli hash <from,to,amount>")
	}
	t, err := tx.ParseLine(args[0])
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(w, t.Hash(tree.Hasher()))
	return nil
}

func cmdRoot(w io.Writer, tree *merkle.Tree, args []string) error {
	fs := flag.NewFlagSet("root", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	levels := fs.Bool("levels", false, "Print every tree level")
	if err := fs.Parse(reorder(args, "levels")); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: txroot-cli root <file|-> [--levels]")
	}

	txs, err := readBatch(fs.Arg(0))
	if err != nil {
		return err
	}
	leaves := tx.Hashes(tree.Hasher(), txs)
	root, ok := tree.Root(leaves)
	if !ok {
		return errors.New("no transactions: merkle root is undefined")
	}

	if *levels {
		for i, level := range tree.Levels(leaves) {
			fmt.Fprintf(w, "level %d:\n", i)
			for _, d := range level {
				fmt.Fprintf(w, "  %s\n", d)
			}
		}
	}
	fmt.Fprintln(w, root)
	return nil
}

func cmdValidate(w io.Writer, tree *merkle.Tree, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: txroot-cli validate <block.json|->")
	}
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		return fmt.Errorf("decode block: %w", err)
	}

	if err := block.NewValidator(tree).Validate(&blk); err != nil {
		fmt.Fprintf(w, "invalid: %v\n", err)
		return errInvalidBlock
	}
	fmt.Fprintf(w, "valid (%d transactions, %s)\n", blk.TxCount(), tree.Hasher().Name())
	return nil
}

func cmdAssemble(w io.Writer, tree *merkle.Tree, args []string) error {
	fs := flag.NewFlagSet("assemble", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("out", "", "Write the block JSON to this file")
	if err := fs.Parse(reorder(args)); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: txroot-cli assemble <file|-> [--out <file>]")
	}

	txs, err := readBatch(fs.Arg(0))
	if err != nil {
		return err
	}
	blk, err := block.Assemble(tree, txs)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(blk, "", "  ")
	if err != nil {
		return err
	}
	if *out != "" {
		if err := os.WriteFile(*out, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("write block: %w", err)
		}
		fmt.Fprintf(w, "Wrote block %s (%d transactions) to %s\n", blk.MerkleRoot, blk.TxCount(), *out)
		return nil
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// readInput reads a file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// readBatch reads and validates a transaction batch.
func readBatch(path string) ([]*tx.Transaction, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	txs, err := tx.DecodeBatch(tx.FormatFromPath(path), data)
	if err != nil {
		return nil, err
	}
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return txs, nil
}

// reorder moves flags ahead of positional arguments so that
// "root file.txt --levels" parses the same as "root --levels file.txt".
// Flags not named in boolFlags consume the following argument.
func reorder(args []string, boolFlags ...string) []string {
	isBool := func(a string) bool {
		name := strings.TrimLeft(a, "-")
		for _, b := range boolFlags {
			if name == b {
				return true
			}
		}
		return false
	}

	var flags, rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") || a == "-" {
			rest = append(rest, a)
			continue
		}
		flags = append(flags, a)
		if !strings.Contains(a, "=") && !isBool(a) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, rest...)
}

// ── Node ────────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	stats, err := client.Stats()
	if err != nil {
		fatal("node_getStats: %v", err)
	}

	fmt.Printf("Hasher:    %s\n", stats.Hasher)
	fmt.Printf("Producing: %v\n", stats.Producing)
	fmt.Printf("Received:  %d\n", stats.Received)
	fmt.Printf("Pending:   %d\n", stats.Pending)
	fmt.Printf("Blocks:    %d (invalid: %d, failed: %d)\n", stats.Blocks, stats.Invalid, stats.Failed)
	fmt.Printf("Expired:   %d\n", stats.Expired)
	fmt.Printf("TPS:       %.2f\n", stats.TPS)
	fmt.Printf("Uptime:    %s\n", stats.Uptime.Round(time.Second))
	if stats.LastRoot != "" {
		fmt.Printf("Last root: %s\n", stats.LastRoot)
	}
}

func cmdBlock(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("block", flag.ExitOnError)
	seq := fs.Int64("seq", -1, "Look the block up by sequence number")
	fs.Parse(args)

	var (
		rec *rpc.RecordResult
		err error
	)
	switch {
	case *seq >= 0:
		rec, err = client.BlockBySeq(uint64(*seq))
	case fs.NArg() == 1:
		rec, err = client.Block(types.Digest(fs.Arg(0)))
	default:
		fatal("Usage: txroot-cli block <root> | --seq <n>")
	}
	if err != nil {
		fatal("block_get: %v", err)
	}

	fmt.Printf("Root:         %s\n", rec.Root)
	fmt.Printf("Seq:          %d\n", rec.Seq)
	fmt.Printf("Hasher:       %s\n", rec.Hasher)
	fmt.Printf("Created:      %s\n", rec.CreatedAt)
	fmt.Printf("Transactions: %d\n", rec.TxCount)
	for i, h := range rec.TxHashes {
		fmt.Printf("  %4d  %s\n", i, h)
	}
}

func cmdBlocks(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("blocks", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Number of blocks to show")
	fs.Parse(args)

	list, err := client.Blocks(*limit)
	if err != nil {
		fatal("block_list: %v", err)
	}

	fmt.Printf("Total blocks: %d\n", list.Total)
	for _, rec := range list.Blocks {
		fmt.Printf("  #%-6d %-8s %5d txs  %s\n", rec.Seq, rec.Hasher, rec.TxCount, rec.Root.Short(32))
	}
}

func cmdVerify(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: txroot-cli verify <root>")
	}
	result, err := client.VerifyBlock(types.Digest(args[0]))
	if err != nil {
		fatal("block_verify: %v", err)
	}
	if !result.Valid {
		fmt.Printf("invalid: %s\n", result.Reason)
		os.Exit(2)
	}
	fmt.Printf("valid (%s)\n", result.Hasher)
}

func cmdSubmit(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: txroot-cli submit <from,to,amount>")
	}
	t, err := tx.ParseLine(args[0])
	if err != nil {
		fatal("parse transaction: %v", err)
	}
	result, err := client.Submit(t)
	if err != nil {
		fatal("tx_submit: %v", err)
	}
	fmt.Printf("Submitted: %s\n", result.Hash)
}

func cmdMempool(client *rpcclient.Client) {
	info, err := client.MempoolInfo()
	if err != nil {
		fatal("mempool_getInfo: %v", err)
	}
	fmt.Printf("Pending:  %d\n", info.Count)
	fmt.Printf("Received: %d\n", info.Received)
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
