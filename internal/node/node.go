// Package node wires storage, the mempool, the miner, the intake pipeline
// and the RPC server into a runnable process.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/txroot/config"
	"github.com/Klingon-tech/txroot/internal/blockstore"
	"github.com/Klingon-tech/txroot/internal/intake"
	klog "github.com/Klingon-tech/txroot/internal/log"
	"github.com/Klingon-tech/txroot/internal/mempool"
	"github.com/Klingon-tech/txroot/internal/miner"
	"github.com/Klingon-tech/txroot/internal/rpc"
	"github.com/Klingon-tech/txroot/internal/storage"
	"github.com/Klingon-tech/txroot/pkg/merkle"
)

// Node is a fully-initialized txroot node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db       storage.DB
	tree     *merkle.Tree
	store    *blockstore.Store
	pool     *mempool.Pool
	miner    *miner.Miner
	pipeline *intake.Pipeline

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, mempool, miner, pipeline, RPC) but does NOT start
// background goroutines. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := expandHome(cfg.Log.File)
	if logFile == "" && cfg.DataDir != "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "txrootd.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	// ── 2. Hasher ───────────────────────────────────────────────────
	tree, err := resolveTree(cfg.Hasher)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("hasher", tree.Hasher().Name()).
		Str("storage", string(cfg.Storage.Backend)).
		Bool("producer", cfg.Intake.Producer).
		Dur("block_interval", cfg.Intake.BlockInterval).
		Msg("Starting txroot node")

	// ── 3. Open storage ─────────────────────────────────────────────
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	blocks := storage.NewPrefixDB(db, []byte(blockPrefix))
	if cfg.Storage.Reset {
		removed, err := blocks.DeleteAll()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("reset block store: %w", err)
		}
		logger.Warn().Int("keys", removed).Msg("Block store reset")
	}

	store, err := blockstore.New(blocks)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open block store: %w", err)
	}
	logger.Info().Uint64("blocks", store.Count()).Msg("Block store opened")

	// ── 4. Mempool, miner, pipeline ─────────────────────────────────
	pool := mempool.New(tree.Hasher(), cfg.Intake.PoolSize)
	pool.SetPolicy(mempool.PolicyFromConfig(cfg.Intake))
	m := miner.New(tree, pool, store)
	pipeline := intake.New(cfg.Intake, pool, m)

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		tree:     tree,
		store:    store,
		pool:     pool,
		miner:    m,
		pipeline: pipeline,
		ctx:      ctx,
		cancel:   cancel,
	}

	// ── 5. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(addr, tree, pool, store, cfg.RPC)
		n.rpcServer.SetIntake(pipeline)
	}

	return n, nil
}

// Start launches the RPC server and the intake pipeline.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start rpc: %w", err)
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server started")
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.pipeline.Run(n.ctx); err != nil {
			n.logger.Error().Err(err).Msg("Intake pipeline failed")
			n.cancel()
		}
	}()

	n.logger.Info().
		Uint64("blocks", n.store.Count()).
		Str("hasher", n.tree.Hasher().Name()).
		Msg("Node started successfully")

	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	if n.db != nil {
		n.db.Close()
	}

	s := n.pipeline.Stats()
	n.logger.Info().
		Uint64("received", s.Received).
		Uint64("blocks", s.Blocks).
		Uint64("invalid_blocks", s.Invalid).
		Uint64("failed_blocks", s.Failed).
		Msg("Goodbye!")
}

// Done is closed when the node stops or its pipeline fails.
func (n *Node) Done() <-chan struct{} {
	return n.ctx.Done()
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Stats returns the intake pipeline counters.
func (n *Node) Stats() intake.Stats {
	return n.pipeline.Stats()
}

// Store returns the block store.
func (n *Node) Store() *blockstore.Store {
	return n.store
}
