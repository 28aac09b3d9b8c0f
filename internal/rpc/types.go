package rpc

import (
	"time"

	"github.com/Klingon-tech/txroot/internal/blockstore"
	"github.com/Klingon-tech/txroot/pkg/block"
	"github.com/Klingon-tech/txroot/pkg/tx"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeUnavailable    = -32001
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// MerkleRootParam is used by merkle_root. Exactly one of Leaves and
// Transactions should be set.
type MerkleRootParam struct {
	Leaves       []string          `json:"leaves,omitempty"`
	Transactions []*tx.Transaction `json:"transactions,omitempty"`
	Hasher       string            `json:"hasher,omitempty"`
	Levels       bool              `json:"levels,omitempty"`
}

// BlockValidateParam is used by block_validate.
type BlockValidateParam struct {
	Block  *block.Block `json:"block"`
	Hasher string       `json:"hasher,omitempty"`
}

// RootParam is used by endpoints that take a single block root.
// block_get also accepts Seq in place of Root.
type RootParam struct {
	Root string  `json:"root,omitempty"`
	Seq  *uint64 `json:"seq,omitempty"`
}

// LimitParam is used by list endpoints.
type LimitParam struct {
	Limit int `json:"limit"`
}

// TxParam is used by tx_submit and tx_hash.
type TxParam struct {
	Transaction *tx.Transaction `json:"transaction"`
	Hasher      string          `json:"hasher,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// MerkleRootResult is returned by merkle_root.
type MerkleRootResult struct {
	Root      types.Digest     `json:"root"`
	LeafCount int              `json:"leaf_count"`
	Hasher    string           `json:"hasher"`
	Levels    [][]types.Digest `json:"levels,omitempty"`
}

// ValidateResult is returned by block_validate and block_verify.
type ValidateResult struct {
	Valid    bool         `json:"valid"`
	Reason   string       `json:"reason,omitempty"`
	Stored   types.Digest `json:"stored,omitempty"`
	Computed types.Digest `json:"computed,omitempty"`
	Hasher   string       `json:"hasher"`
}

// RecordResult wraps a stored block for RPC responses.
type RecordResult struct {
	Root      types.Digest   `json:"root"`
	Seq       uint64         `json:"seq"`
	Hasher    string         `json:"hasher"`
	CreatedAt string         `json:"created_at"`
	TxCount   int            `json:"tx_count"`
	TxHashes  []types.Digest `json:"tx_hashes"`
}

// NewRecordResult creates a RecordResult from a stored record.
func NewRecordResult(rec *blockstore.Record) *RecordResult {
	return &RecordResult{
		Root:      rec.Block.MerkleRoot,
		Seq:       rec.Seq,
		Hasher:    rec.Hasher,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		TxCount:   rec.Block.TxCount(),
		TxHashes:  rec.Block.TxHashes,
	}
}

// BlockListResult is returned by block_list.
type BlockListResult struct {
	Total  uint64          `json:"total"`
	Blocks []*RecordResult `json:"blocks"`
}

// TxHashResult is returned by tx_submit and tx_hash.
type TxHashResult struct {
	Hash   types.Digest `json:"hash"`
	Hasher string       `json:"hasher"`
}

// MempoolInfoResult is returned by mempool_getInfo.
type MempoolInfoResult struct {
	Count    int    `json:"count"`
	Received uint64 `json:"received"`
}

// MempoolContentResult is returned by mempool_getContent.
type MempoolContentResult struct {
	Transactions []*tx.Transaction `json:"transactions"`
}
