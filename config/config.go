// Package config handles node configuration.
//
// Settings come from three layers, later layers overriding earlier ones:
// built-in defaults, the key=value config file, and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// StorageBackend selects the block store implementation.
type StorageBackend string

const (
	BackendBadger StorageBackend = "badger"
	BackendMemory StorageBackend = "memory"
)

// Config holds node runtime configuration.
type Config struct {
	DataDir string `conf:"datadir"`

	// Hasher names the merkle hasher used for new blocks
	// (text, blake3, sha256, sha3).
	Hasher string `conf:"hasher"`

	// Transaction intake and block assembly
	Intake IntakeConfig

	// Block store
	Storage StorageConfig

	// RPC server
	RPC RPCConfig

	// Logging
	Log LogConfig

	// Duration stops the node after the given time when non-zero
	// (not persisted in config file).
	Duration time.Duration
}

// IntakeConfig holds settings for the producer/consumer pipeline.
type IntakeConfig struct {
	// Producer emits synthetic From -> To transfers when enabled.
	Producer        bool          `conf:"intake.producer"`
	From            string        `conf:"intake.from"`
	To              string        `conf:"intake.to"`
	StartAmount     uint64        `conf:"intake.start_amount"`
	ProduceInterval time.Duration `conf:"intake.produce_interval"`

	ChannelSize     int           `conf:"intake.channel_size"`
	PoolSize        int           `conf:"intake.pool_size"`
	MonitorInterval time.Duration `conf:"intake.monitor_interval"`
	BlockInterval   time.Duration `conf:"intake.block_interval"`
	MaxBlockTxs     int           `conf:"intake.max_block_txs"`

	// TxTTL drops pending transactions older than this (0 = keep forever).
	TxTTL time.Duration `conf:"intake.tx_ttl"`

	// Mempool acceptance policy.
	MinAmount      uint64 `conf:"intake.min_amount"`
	MaxFieldLength int    `conf:"intake.max_field_length"`
	AllowSelfSend  bool   `conf:"intake.allow_self_send"`
}

// StorageConfig holds block store settings.
type StorageConfig struct {
	Backend StorageBackend `conf:"storage.backend"`

	// Reset wipes stored blocks at startup (flag only, not persisted).
	Reset bool
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.txroot
//	macOS:   ~/Library/Application Support/Txroot
//	Windows: %APPDATA%\Txroot
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".txroot"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Txroot")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Txroot")
		}
		return filepath.Join(home, "AppData", "Roaming", "Txroot")
	default:
		return filepath.Join(home, ".txroot")
	}
}

// BlocksDir returns the block store directory.
func (c *Config) BlocksDir() string {
	return filepath.Join(c.DataDir, "blocks")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "txroot.conf")
}
