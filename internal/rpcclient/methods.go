package rpcclient

import (
	"github.com/Klingon-tech/txroot/internal/intake"
	"github.com/Klingon-tech/txroot/internal/rpc"
	"github.com/Klingon-tech/txroot/pkg/block"
	"github.com/Klingon-tech/txroot/pkg/tx"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// MerkleRoot asks the node to fold a list of leaf digests.
// An empty hasher uses the node's default.
func (c *Client) MerkleRoot(leaves []string, hasher string, levels bool) (*rpc.MerkleRootResult, error) {
	var result rpc.MerkleRootResult
	err := c.Call("merkle_root", rpc.MerkleRootParam{Leaves: leaves, Hasher: hasher, Levels: levels}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MerkleRootOfTxs asks the node for the root over a list of transactions.
func (c *Client) MerkleRootOfTxs(txs []*tx.Transaction, hasher string) (*rpc.MerkleRootResult, error) {
	var result rpc.MerkleRootResult
	err := c.Call("merkle_root", rpc.MerkleRootParam{Transactions: txs, Hasher: hasher}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidateBlock checks a block against its declared root on the node.
func (c *Client) ValidateBlock(blk *block.Block, hasher string) (*rpc.ValidateResult, error) {
	var result rpc.ValidateResult
	if err := c.Call("block_validate", rpc.BlockValidateParam{Block: blk, Hasher: hasher}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Block fetches a stored block by root.
func (c *Client) Block(root types.Digest) (*rpc.RecordResult, error) {
	var result rpc.RecordResult
	if err := c.Call("block_get", rpc.RootParam{Root: string(root)}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BlockBySeq fetches the stored block with the given sequence number.
func (c *Client) BlockBySeq(seq uint64) (*rpc.RecordResult, error) {
	var result rpc.RecordResult
	if err := c.Call("block_get", rpc.RootParam{Seq: &seq}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Blocks lists the most recent stored blocks, newest first.
func (c *Client) Blocks(limit int) (*rpc.BlockListResult, error) {
	var result rpc.BlockListResult
	if err := c.Call("block_list", rpc.LimitParam{Limit: limit}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyBlock re-validates a stored block with the hasher it was built with.
func (c *Client) VerifyBlock(root types.Digest) (*rpc.ValidateResult, error) {
	var result rpc.ValidateResult
	if err := c.Call("block_verify", rpc.RootParam{Root: string(root)}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Submit sends a transaction to the node's intake queue.
func (c *Client) Submit(t *tx.Transaction) (*rpc.TxHashResult, error) {
	var result rpc.TxHashResult
	if err := c.Call("tx_submit", rpc.TxParam{Transaction: t}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MempoolInfo returns the pending and received transaction counts.
func (c *Client) MempoolInfo() (*rpc.MempoolInfoResult, error) {
	var result rpc.MempoolInfoResult
	if err := c.Call("mempool_getInfo", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats returns the intake pipeline counters.
func (c *Client) Stats() (*intake.Stats, error) {
	var result intake.Stats
	if err := c.Call("node_getStats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
