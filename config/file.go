package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
// A missing file yields an empty map.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := unquote(strings.TrimSpace(parts[1]))
		values[key] = value
	}

	return values, scanner.Err()
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key. Unknown keys are ignored.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	// Core
	case "datadir":
		cfg.DataDir = value
	case "hasher":
		cfg.Hasher = strings.ToLower(value)

	// Intake
	case "intake.producer", "producer":
		cfg.Intake.Producer = parseBool(value)
	case "intake.from":
		cfg.Intake.From = value
	case "intake.to":
		cfg.Intake.To = value
	case "intake.start_amount":
		cfg.Intake.StartAmount, err = strconv.ParseUint(value, 10, 64)
	case "intake.produce_interval":
		cfg.Intake.ProduceInterval, err = time.ParseDuration(value)
	case "intake.channel_size":
		cfg.Intake.ChannelSize, err = strconv.Atoi(value)
	case "intake.pool_size":
		cfg.Intake.PoolSize, err = strconv.Atoi(value)
	case "intake.monitor_interval":
		cfg.Intake.MonitorInterval, err = time.ParseDuration(value)
	case "intake.block_interval":
		cfg.Intake.BlockInterval, err = time.ParseDuration(value)
	case "intake.max_block_txs":
		cfg.Intake.MaxBlockTxs, err = strconv.Atoi(value)
	case "intake.tx_ttl":
		cfg.Intake.TxTTL, err = time.ParseDuration(value)
	case "intake.min_amount":
		cfg.Intake.MinAmount, err = strconv.ParseUint(value, 10, 64)
	case "intake.max_field_length":
		cfg.Intake.MaxFieldLength, err = strconv.Atoi(value)
	case "intake.allow_self_send":
		cfg.Intake.AllowSelfSend = parseBool(value)

	// Storage
	case "storage.backend":
		cfg.Storage.Backend = StorageBackend(strings.ToLower(value))

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		cfg.RPC.Port, err = strconv.Atoi(value)
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)
	}
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string) error {
	content := `# txroot node configuration

# Data directory (default: ~/.txroot)
# datadir = ~/.txroot

# Merkle hasher for new blocks: text, blake3, sha256, sha3
hasher = blake3

# ============================================================================
# Intake
# ============================================================================

# Emit synthetic transfers from intake.from to intake.to
intake.producer = true
intake.from = Alice
intake.to = Bob
intake.start_amount = 100
intake.produce_interval = 500ms

intake.channel_size = 100
intake.pool_size = 10000
intake.monitor_interval = 1s

# Assemble a block from pending transactions every interval
intake.block_interval = 2s
intake.max_block_txs = 1000

# Drop transactions that wait longer than this (0 = never)
# intake.tx_ttl = 0

# Mempool policy: smallest accepted amount, longest party name in bytes
# (at most 256), and whether From == To is accepted
intake.min_amount = 0
intake.max_field_length = 64
intake.allow_self_send = true

# ============================================================================
# Storage
# ============================================================================

# badger (persistent) or memory
storage.backend = badger

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = 8645
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
