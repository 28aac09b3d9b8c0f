package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Klingon-tech/txroot/pkg/block"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/tx"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func run(t *testing.T, tree *merkle.Tree, cmd string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := runOffline(&buf, tree, cmd, args)
	return buf.String(), err
}

func TestHash(t *testing.T) {
	out, err := run(t, merkle.New(merkle.Text()), "hash", "Alice,Bob,100")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if strings.TrimSpace(out) != "Alice-Bob-100" {
		t.Errorf("hash = %q, want Alice-Bob-100", out)
	}

	if _, err := run(t, merkle.Default, "hash", "Alice,Bob"); !errors.Is(err, tx.ErrNotEnoughParts) {
		t.Errorf("expected ErrNotEnoughParts, got: %v", err)
	}
	if _, err := run(t, merkle.Default, "hash"); err == nil {
		t.Error("expected usage error")
	}
}

func TestRoot(t *testing.T) {
	path := writeFile(t, "batch.txt", "h1,x,1\nh2,x,2\n\nh3,x,3\n")
	tree := merkle.New(merkle.Text())

	out, err := run(t, tree, "root", path)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	want := "h1-x-1|h2-x-2|h3-x-3|h3-x-3"
	if strings.TrimSpace(out) != want {
		t.Errorf("root = %q, want %q", out, want)
	}

	out, err = run(t, tree, "root", path, "--levels")
	if err != nil {
		t.Fatalf("root --levels: %v", err)
	}
	if !strings.Contains(out, "level 0:") || !strings.Contains(out, "level 2:") {
		t.Errorf("levels output missing levels:\n%s", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), want) {
		t.Errorf("levels output should end with the root:\n%s", out)
	}
}

func TestRoot_Empty(t *testing.T) {
	path := writeFile(t, "empty.txt", "\n\n")
	if _, err := run(t, merkle.Default, "root", path); err == nil {
		t.Error("expected error for an empty batch")
	}
}

func TestRoot_JSONBatch(t *testing.T) {
	txs := []*tx.Transaction{tx.New("Alice", "Bob", 1), tx.New("Bob", "Carol", 2)}
	data, _ := json.Marshal(txs)
	path := writeFile(t, "batch.json", string(data))

	out, err := run(t, merkle.Default, "root", path)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	want, _ := merkle.RootOf(merkle.Default, txs)
	if strings.TrimSpace(out) != string(want) {
		t.Errorf("root = %q, want %q", out, want)
	}
}

func TestAssembleAndValidate(t *testing.T) {
	for _, name := range merkle.Names() {
		t.Run(name, func(t *testing.T) {
			tree, err := treeFor(name)
			if err != nil {
				t.Fatal(err)
			}
			batch := writeFile(t, "batch.txt", "Alice,Bob,1\nBob,Carol,2\nCarol,Dave,3\n")
			blockPath := filepath.Join(t.TempDir(), "block.json")

			if _, err := run(t, tree, "assemble", batch, "--out", blockPath); err != nil {
				t.Fatalf("assemble: %v", err)
			}
			out, err := run(t, tree, "validate", blockPath)
			if err != nil {
				t.Fatalf("validate: %v (%s)", err, out)
			}
			if !strings.HasPrefix(out, "valid") {
				t.Errorf("validate output = %q", out)
			}

			// Tamper with a leaf.
			data, _ := os.ReadFile(blockPath)
			var blk block.Block
			if err := json.Unmarshal(data, &blk); err != nil {
				t.Fatal(err)
			}
			blk.TxHashes[0] = tx.New("Mallory", "Bob", 1).Hash(tree.Hasher())
			data, _ = json.Marshal(&blk)
			tampered := writeFile(t, "tampered.json", string(data))

			out, err = run(t, tree, "validate", tampered)
			if !errors.Is(err, errInvalidBlock) {
				t.Errorf("expected errInvalidBlock, got: %v", err)
			}
			if !strings.HasPrefix(out, "invalid") {
				t.Errorf("validate output = %q", out)
			}
		})
	}
}

func TestAssemble_Stdout(t *testing.T) {
	batch := writeFile(t, "batch.txt", "h1,x,1\n")
	out, err := run(t, merkle.New(merkle.Text()), "assemble", batch)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	var blk block.Block
	if err := json.Unmarshal([]byte(out), &blk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if blk.MerkleRoot != "h1-x-1" || blk.TxCount() != 1 {
		t.Errorf("block = %+v", blk)
	}
}

func TestValidate_EmptyBlock(t *testing.T) {
	path := writeFile(t, "empty.json", `{"tx_hashes":[],"merkle_root":"h1"}`)
	if _, err := run(t, merkle.Default, "validate", path); !errors.Is(err, errInvalidBlock) {
		t.Errorf("empty block should be invalid, got: %v", err)
	}
}

func TestTreeFor(t *testing.T) {
	tree, err := treeFor("")
	if err != nil || tree != merkle.Default {
		t.Errorf("treeFor(\"\") should return the default tree")
	}
	if _, err := treeFor("md5"); err == nil {
		t.Error("expected error for unknown hasher")
	}
}

func TestReorder(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"file", "--levels"}, []string{"--levels", "file"}},
		{[]string{"file", "--out", "b.json"}, []string{"--out", "b.json", "file"}},
		{[]string{"--out=b.json", "-"}, []string{"--out=b.json", "-"}},
		{[]string{"file"}, []string{"file"}},
	}
	for _, tt := range tests {
		got := reorder(tt.in, "levels")
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("reorder(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
