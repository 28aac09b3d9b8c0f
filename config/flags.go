package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Version is reported by --version.
const Version = "0.1.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	DataDir  string
	Config   string
	Hasher   string
	Duration time.Duration

	// Intake
	Producer        bool
	From            string
	To              string
	ProduceInterval time.Duration
	BlockInterval   time.Duration
	MaxBlockTxs     int

	// Storage
	Storage     string
	ResetBlocks bool

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetProducer bool
	SetRPC      bool
	SetRPCPort  bool
	SetLogJSON  bool
}

// ParseFlags parses command-line arguments (without the program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("txrootd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.Hasher, "hasher", "", "Merkle hasher (text, blake3, sha256, sha3)")
	fs.DurationVar(&f.Duration, "duration", 0, "Stop after this long (0 = run until interrupted)")

	// Intake
	fs.BoolVar(&f.Producer, "producer", true, "Emit synthetic transactions")
	fs.StringVar(&f.From, "from", "", "Sender of synthetic transactions")
	fs.StringVar(&f.To, "to", "", "Recipient of synthetic transactions")
	fs.DurationVar(&f.ProduceInterval, "produce-interval", 0, "Delay between synthetic transactions")
	fs.DurationVar(&f.BlockInterval, "block-interval", 0, "Delay between assembled blocks")
	fs.IntVar(&f.MaxBlockTxs, "max-block-txs", 0, "Maximum transactions per block")

	// Storage
	fs.StringVar(&f.Storage, "storage", "", "Block store backend (badger or memory)")
	fs.BoolVar(&f.ResetBlocks, "reset-blocks", false, "Delete all stored blocks at startup")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	f.SetProducer = isFlagSet(fs, "producer")
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetRPCPort = isFlagSet(fs, "rpc-port")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	// A positional argument stops the parser; anything flag-like after it
	// was silently ignored.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.Hasher != "" {
		cfg.Hasher = strings.ToLower(f.Hasher)
	}
	if f.Duration != 0 {
		cfg.Duration = f.Duration
	}

	// Intake
	if f.SetProducer {
		cfg.Intake.Producer = f.Producer
	}
	if f.From != "" {
		cfg.Intake.From = f.From
	}
	if f.To != "" {
		cfg.Intake.To = f.To
	}
	if f.ProduceInterval != 0 {
		cfg.Intake.ProduceInterval = f.ProduceInterval
	}
	if f.BlockInterval != 0 {
		cfg.Intake.BlockInterval = f.BlockInterval
	}
	if f.MaxBlockTxs != 0 {
		cfg.Intake.MaxBlockTxs = f.MaxBlockTxs
	}

	// Storage
	if f.Storage != "" {
		cfg.Storage.Backend = StorageBackend(strings.ToLower(f.Storage))
	}
	if f.ResetBlocks {
		cfg.Storage.Reset = true
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.SetRPCPort {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the daemon help text to w.
func PrintUsage(w io.Writer) {
	usage := `txrootd - transaction intake node with Merkle-rooted blocks

Usage:
  txrootd [options]
  txrootd --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --datadir       Data directory (default: ~/.txroot)
  --config, -c    Config file path (default: <datadir>/txroot.conf)
  --hasher        Merkle hasher: text, blake3 (default), sha256, sha3
  --duration      Stop after this long, e.g. 5s (default: run until interrupted)

Intake Options:
  --producer          Emit synthetic transactions (default: true)
  --from, --to        Parties of synthetic transactions (default: Alice, Bob)
  --produce-interval  Delay between synthetic transactions (default: 500ms)
  --block-interval    Delay between assembled blocks (default: 2s)
  --max-block-txs     Maximum transactions per block (default: 1000)

Storage Options:
  --storage       Block store backend: badger (default) or memory
  --reset-blocks  Delete all stored blocks at startup

RPC Options:
  --rpc           Enable RPC server (default: true)
  --rpc-addr      RPC listen address (default: 127.0.0.1)
  --rpc-port      RPC port (default: 8645, 0 = any free port)
  --rpc-allowed   Allowed IPs for RPC (comma-separated)
  --rpc-cors      Allowed CORS origins for RPC (comma-separated)

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: <datadir>/logs/txrootd.log)
  --log-json      Output logs as JSON

Examples:
  # Run for five seconds with an in-memory store
  txrootd --storage=memory --duration=5s

  # Use SHA-256 and a faster block interval
  txrootd --hasher=sha256 --block-interval=500ms
`
	fmt.Fprint(w, usage)
}

// Load builds the configuration from args with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	if flags.Help || flags.Version {
		return nil, flags, nil
	}

	cfg := Default()
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags have the highest precedence.
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. It is idempotent.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.BlocksDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
