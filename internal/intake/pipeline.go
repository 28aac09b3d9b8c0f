// Package intake runs the transaction pipeline: a producer feeding a
// bounded channel, a consumer moving transactions into the mempool, a
// monitor reporting throughput, and an assembler cutting blocks.
package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/txroot/config"
	"github.com/Klingon-tech/txroot/internal/blockstore"
	"github.com/Klingon-tech/txroot/internal/log"
	"github.com/Klingon-tech/txroot/internal/mempool"
	"github.com/Klingon-tech/txroot/internal/miner"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/tx"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// ErrAlreadyRunning is returned by Run when the pipeline is already active.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	Received  uint64        `json:"received"`
	Pending   int           `json:"pending"`
	Produced  uint64        `json:"produced"`
	Rejected  uint64        `json:"rejected"`
	Blocks    uint64        `json:"blocks"`
	Invalid   uint64        `json:"invalid_blocks"`
	Failed    uint64        `json:"failed_blocks"`
	Expired   uint64        `json:"expired"`
	LastRoot  types.Digest  `json:"last_root,omitempty"`
	TPS       float64       `json:"tps"`
	Uptime    time.Duration `json:"uptime"`
	Hasher    string        `json:"hasher"`
	Producing bool          `json:"producing"`
}

// BlockProducer cuts blocks from the pool. *miner.Miner implements it.
type BlockProducer interface {
	ProduceBlock() (*blockstore.Record, error)
	SetMaxBlockTxs(n int)
	Tree() *merkle.Tree
}

// Pipeline wires the intake goroutines around a pool and a miner.
type Pipeline struct {
	cfg   config.IntakeConfig
	pool  *mempool.Pool
	miner BlockProducer
	ch    chan *tx.Transaction

	logger zerolog.Logger

	running  atomic.Bool
	produced atomic.Uint64
	rejected atomic.Uint64
	blocks   atomic.Uint64
	invalid  atomic.Uint64
	failed   atomic.Uint64
	expired  atomic.Uint64

	mu       sync.RWMutex
	started  time.Time
	lastRoot types.Digest
}

// New creates a pipeline. The miner should drain the same pool.
func New(cfg config.IntakeConfig, pool *mempool.Pool, m BlockProducer) *Pipeline {
	size := cfg.ChannelSize
	if size < 1 {
		size = 1
	}
	if cfg.MaxBlockTxs > 0 {
		m.SetMaxBlockTxs(cfg.MaxBlockTxs)
	}
	return &Pipeline{
		cfg:     cfg,
		pool:    pool,
		miner:   m,
		ch:      make(chan *tx.Transaction, size),
		logger:  log.Intake,
		started: time.Now(),
	}
}

// Run starts the pipeline loops and blocks until ctx is done or a loop
// fails. Cancellation is a clean stop and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Producer {
		g.Go(func() error { return p.runProducer(gctx) })
	}
	g.Go(func() error { return p.runConsumer(gctx) })
	g.Go(func() error { return p.runMonitor(gctx) })
	g.Go(func() error { return p.runAssembler(gctx) })

	p.logger.Info().
		Bool("producer", p.cfg.Producer).
		Str("hasher", p.miner.Tree().Hasher().Name()).
		Dur("block_interval", p.cfg.BlockInterval).
		Msg("Intake pipeline started")

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	p.logger.Info().Msg("Intake pipeline stopped")
	return err
}

// Submit queues a transaction for the consumer. Transactions the pool's
// policy refuses are rejected here. It blocks while the channel is full
// until ctx is done.
func (p *Pipeline) Submit(ctx context.Context, t *tx.Transaction) error {
	if err := p.pool.CheckPolicy(t); err != nil {
		return err
	}
	select {
	case p.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.RLock()
	started, lastRoot := p.started, p.lastRoot
	p.mu.RUnlock()

	received := p.pool.Received()
	uptime := time.Since(started)
	return Stats{
		Received:  received,
		Pending:   p.pool.Count(),
		Produced:  p.produced.Load(),
		Rejected:  p.rejected.Load(),
		Blocks:    p.blocks.Load(),
		Invalid:   p.invalid.Load(),
		Failed:    p.failed.Load(),
		Expired:   p.expired.Load(),
		LastRoot:  lastRoot,
		TPS:       tps(received, uptime),
		Uptime:    uptime,
		Hasher:    p.miner.Tree().Hasher().Name(),
		Producing: p.running.Load() && p.cfg.Producer,
	}
}

func tps(received uint64, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(received) / secs
}

// runProducer emits From -> To transfers with an increasing amount.
func (p *Pipeline) runProducer(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.ProduceInterval)
	defer ticker.Stop()

	amount := p.cfg.StartAmount
	for {
		amount++
		t := tx.New(p.cfg.From, p.cfg.To, amount)
		select {
		case p.ch <- t:
			p.produced.Add(1)
		case <-ctx.Done():
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runConsumer moves queued transactions into the pool.
func (p *Pipeline) runConsumer(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-p.ch:
			txHash, err := p.pool.Add(t)
			if err != nil {
				p.rejected.Add(1)
				p.logger.Warn().Err(err).Str("tx", t.String()).Msg("Transaction rejected")
				continue
			}
			p.logger.Debug().
				Str("tx", t.String()).
				Str("hash", txHash.Short(16)).
				Msg("Transaction received")
		}
	}
}

// runMonitor logs pool size and throughput, and expires stale entries.
func (p *Pipeline) runMonitor(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := p.pool.Expire(p.cfg.TxTTL); n > 0 {
				p.expired.Add(uint64(n))
				p.logger.Info().Int("dropped", n).Msg("Expired pending transactions")
			}
			s := p.Stats()
			p.logger.Info().
				Int("mempool", s.Pending).
				Uint64("received", s.Received).
				Uint64("blocks", s.Blocks).
				Str("tps", fmt.Sprintf("%.2f", s.TPS)).
				Msg("Pipeline status")
		}
	}
}

// runAssembler cuts a block from pending transactions every interval.
func (p *Pipeline) runAssembler(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.BlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.assemble()
		}
	}
}

// assemble produces one block. Failures are logged; the loop keeps going.
func (p *Pipeline) assemble() {
	done := log.Benchmark("assemble block")
	defer done()

	rec, err := p.miner.ProduceBlock()
	switch {
	case errors.Is(err, miner.ErrNothingToMine):
		return
	case errors.Is(err, miner.ErrInvalidBlock):
		p.invalid.Add(1)
		p.logger.Error().Err(err).Msg("Assembled block is invalid, discarded")
		return
	case err != nil:
		p.failed.Add(1)
		p.logger.Error().Err(err).Msg("Failed to produce block")
		return
	}

	p.blocks.Add(1)
	p.mu.Lock()
	p.lastRoot = rec.Block.MerkleRoot
	p.mu.Unlock()

	p.logger.Info().
		Uint64("seq", rec.Seq).
		Str("root", rec.Block.MerkleRoot.Short(16)).
		Int("txs", rec.Block.TxCount()).
		Msg("Block assembled")
}
