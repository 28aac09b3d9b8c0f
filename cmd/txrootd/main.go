// txrootd runs the transaction intake pipeline and assembles
// Merkle-rooted blocks.
//
// Usage:
//
//	txrootd [--hasher=... --duration=...] Run node
//	txrootd --help                        Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Klingon-tech/txroot/config"
	"github.com/Klingon-tech/txroot/internal/log"
	"github.com/Klingon-tech/txroot/internal/node"
)

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		config.PrintUsage(os.Stderr)
		os.Exit(1)
	}
	if flags.Help {
		config.PrintUsage(os.Stdout)
		return
	}
	if flags.Version {
		fmt.Printf("txrootd %s\n", config.Version)
		return
	}

	n, err := node.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := n.Start(); err != nil {
		log.Error().Err(err).Msg("Node failed to start")
		n.Stop()
		os.Exit(1)
	}

	var timeout <-chan time.Time
	if cfg.Duration > 0 {
		timeout = time.After(cfg.Duration)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case <-timeout:
		log.Info().Dur("duration", cfg.Duration).Msg("Run duration elapsed, shutting down")
	case <-n.Done():
		log.Info().Msg("Node stopped, shutting down")
	}

	n.Stop()
}
