package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/txroot/internal/blockstore"
	"github.com/Klingon-tech/txroot/pkg/block"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/tx"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// resolveTree returns the server's tree, or a tree for the named hasher.
func (s *Server) resolveTree(name string) (*merkle.Tree, *Error) {
	if name == "" {
		return s.tree, nil
	}
	h, err := merkle.HasherByName(name)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return merkle.New(h), nil
}

// ── Merkle endpoints ────────────────────────────────────────────────────

func (s *Server) handleMerkleRoot(req *Request) (interface{}, *Error) {
	var params MerkleRootParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if len(params.Leaves) > 0 && len(params.Transactions) > 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "set either leaves or transactions, not both"}
	}

	t, rpcErr := s.resolveTree(params.Hasher)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var leaves []types.Digest
	if len(params.Transactions) > 0 {
		for i, transaction := range params.Transactions {
			if err := transaction.Validate(); err != nil {
				return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("transaction %d: %v", i, err)}
			}
		}
		leaves = tx.Hashes(t.Hasher(), params.Transactions)
	} else {
		leaves = types.Digests(params.Leaves)
	}

	root, ok := t.Root(leaves)
	if !ok {
		return nil, &Error{Code: CodeInvalidParams, Message: "no leaves: merkle root is undefined"}
	}

	result := &MerkleRootResult{
		Root:      root,
		LeafCount: len(leaves),
		Hasher:    t.Hasher().Name(),
	}
	if params.Levels {
		result.Levels = t.Levels(leaves)
	}
	return result, nil
}

// ── Block endpoints ─────────────────────────────────────────────────────

func (s *Server) handleBlockValidate(req *Request) (interface{}, *Error) {
	var params BlockValidateParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Block == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "block is required"}
	}

	t, rpcErr := s.resolveTree(params.Hasher)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return validateResult(t, params.Block), nil
}

func validateResult(t *merkle.Tree, blk *block.Block) *ValidateResult {
	result := &ValidateResult{
		Stored: blk.MerkleRoot,
		Hasher: t.Hasher().Name(),
	}
	result.Computed, _ = blk.ComputeMerkleRoot(t)
	if err := block.NewValidator(t).Validate(blk); err != nil {
		result.Reason = err.Error()
		return result
	}
	result.Valid = true
	return result
}

func (s *Server) handleBlockGet(req *Request) (interface{}, *Error) {
	if s.store == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "block store not enabled"}
	}
	var params RootParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	var (
		rec *blockstore.Record
		err error
	)
	switch {
	case params.Seq != nil:
		rec, err = s.store.GetBySeq(*params.Seq)
	case params.Root != "":
		rec, err = s.store.Get(types.Digest(params.Root))
	default:
		return nil, &Error{Code: CodeInvalidParams, Message: "root or seq is required"}
	}
	if errors.Is(err, blockstore.ErrNotFound) {
		return nil, &Error{Code: CodeNotFound, Message: err.Error()}
	}
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return NewRecordResult(rec), nil
}

func (s *Server) handleBlockList(req *Request) (interface{}, *Error) {
	if s.store == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "block store not enabled"}
	}
	var params LimitParam
	if req.Params != nil {
		if err := parseParams(req, &params); err != nil {
			return nil, err
		}
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	recs, err := s.store.List(params.Limit)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	blocks := make([]*RecordResult, len(recs))
	for i, rec := range recs {
		blocks[i] = NewRecordResult(rec)
	}
	return &BlockListResult{Total: s.store.Count(), Blocks: blocks}, nil
}

func (s *Server) handleBlockVerify(req *Request) (interface{}, *Error) {
	if s.store == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "block store not enabled"}
	}
	var params RootParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Root == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "root is required"}
	}

	v, err := s.store.Verify(types.Digest(params.Root), nil)
	if errors.Is(err, blockstore.ErrNotFound) {
		return nil, &Error{Code: CodeNotFound, Message: err.Error()}
	}
	if v == nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}

	result := &ValidateResult{
		Valid:    err == nil,
		Stored:   v.Record.Block.MerkleRoot,
		Computed: v.Computed,
		Hasher:   v.Hasher,
	}
	if err != nil {
		result.Reason = err.Error()
	}
	return result, nil
}

// ── Transaction endpoints ───────────────────────────────────────────────

func (s *Server) handleTxSubmit(req *Request) (interface{}, *Error) {
	var params TxParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Transaction == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "transaction is required"}
	}

	switch {
	case s.intake != nil:
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		if err := s.intake.Submit(ctx, params.Transaction); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("rejected: %v", err)}
		}
	case s.pool != nil:
		if _, err := s.pool.Add(params.Transaction); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("rejected: %v", err)}
		}
	default:
		return nil, &Error{Code: CodeUnavailable, Message: "transaction intake not enabled"}
	}

	h := s.tree.Hasher()
	if s.pool != nil {
		h = s.pool.Hasher()
	}
	s.logger.Debug().Str("tx", params.Transaction.String()).Msg("Transaction submitted via RPC")
	return &TxHashResult{Hash: params.Transaction.Hash(h), Hasher: h.Name()}, nil
}

func (s *Server) handleTxHash(req *Request) (interface{}, *Error) {
	var params TxParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Transaction == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "transaction is required"}
	}
	t, rpcErr := s.resolveTree(params.Hasher)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h := t.Hasher()
	return &TxHashResult{Hash: params.Transaction.Hash(h), Hasher: h.Name()}, nil
}

// ── Mempool and node endpoints ──────────────────────────────────────────

func (s *Server) handleMempoolGetInfo(_ *Request) (interface{}, *Error) {
	if s.pool == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "mempool not enabled"}
	}
	return &MempoolInfoResult{
		Count:    s.pool.Count(),
		Received: s.pool.Received(),
	}, nil
}

func (s *Server) handleMempoolGetContent(_ *Request) (interface{}, *Error) {
	if s.pool == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "mempool not enabled"}
	}
	return &MempoolContentResult{Transactions: s.pool.Snapshot()}, nil
}

func (s *Server) handleNodeGetStats(_ *Request) (interface{}, *Error) {
	if s.intake == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "intake pipeline not enabled"}
	}
	return s.intake.Stats(), nil
}
