package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Hasher != "blake3" {
		t.Errorf("default hasher = %q, want blake3", cfg.Hasher)
	}
	if cfg.Intake.MaxBlockTxs > MaxBlockTxs {
		t.Errorf("default max_block_txs %d exceeds hard limit %d", cfg.Intake.MaxBlockTxs, MaxBlockTxs)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "nope.conf"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected empty map, got %v", values)
	}
}

func TestLoadFile_Parse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.conf")
	content := `# comment
hasher = sha256

intake.from = "Carol"
intake.to = 'Dave'
intake.block_interval = 250ms
rpc.allowed = 127.0.0.1, 10.0.0.1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if values["intake.from"] != "Carol" || values["intake.to"] != "Dave" {
		t.Errorf("quotes not stripped: %q %q", values["intake.from"], values["intake.to"])
	}

	cfg := Default()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Hasher != "sha256" {
		t.Errorf("hasher = %q", cfg.Hasher)
	}
	if cfg.Intake.BlockInterval != 250*time.Millisecond {
		t.Errorf("block_interval = %v", cfg.Intake.BlockInterval)
	}
	if len(cfg.RPC.AllowedIPs) != 2 || cfg.RPC.AllowedIPs[1] != "10.0.0.1" {
		t.Errorf("allowed = %v", cfg.RPC.AllowedIPs)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("hasher = text\nnot a pair\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 error, got: %v", err)
	}
}

func TestApplyFileConfig_BadValue(t *testing.T) {
	cfg := Default()
	err := ApplyFileConfig(cfg, map[string]string{"intake.block_interval": "soon"})
	if err == nil || !strings.Contains(err.Error(), "intake.block_interval") {
		t.Errorf("expected error naming the key, got: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown hasher", func(c *Config) { c.Hasher = "md5" }},
		{"bad backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"bad port", func(c *Config) { c.RPC.Port = 70000 }},
		{"empty from", func(c *Config) { c.Intake.From = "" }},
		{"zero channel", func(c *Config) { c.Intake.ChannelSize = 0 }},
		{"zero pool", func(c *Config) { c.Intake.PoolSize = 0 }},
		{"zero block interval", func(c *Config) { c.Intake.BlockInterval = 0 }},
		{"too many block txs", func(c *Config) { c.Intake.MaxBlockTxs = MaxBlockTxs + 1 }},
		{"negative duration", func(c *Config) { c.Duration = -time.Second }},
		{"from over policy limit", func(c *Config) { c.Intake.From = strings.Repeat("A", 100) }},
		{"zero field length", func(c *Config) { c.Intake.MaxFieldLength = 0 }},
		{"field length over hard limit", func(c *Config) { c.Intake.MaxFieldLength = MaxFieldLength + 1 }},
		{"self send disallowed", func(c *Config) { c.Intake.To = c.Intake.From; c.Intake.AllowSelfSend = false }},
		{"start below min amount", func(c *Config) { c.Intake.MinAmount = c.Intake.StartAmount + 2 }},
		{"bad allowed ip", func(c *Config) { c.RPC.AllowedIPs = []string{"localhost"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Validate(nil); err == nil {
		t.Error("nil config should fail")
	}
}

func TestValidate_PolicyFits(t *testing.T) {
	cfg := Default()
	cfg.Intake.From = strings.Repeat("A", 100)
	cfg.Intake.MaxFieldLength = 128
	cfg.Intake.MinAmount = cfg.Intake.StartAmount + 1
	cfg.RPC.AllowedIPs = []string{"127.0.0.1", "10.0.0.0/8", "::1"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestApplyFileConfig_Policy(t *testing.T) {
	cfg := Default()
	err := ApplyFileConfig(cfg, map[string]string{
		"intake.min_amount":       "5",
		"intake.max_field_length": "32",
		"intake.allow_self_send":  "false",
	})
	if err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Intake.MinAmount != 5 || cfg.Intake.MaxFieldLength != 32 || cfg.Intake.AllowSelfSend {
		t.Errorf("policy = %d/%d/%v", cfg.Intake.MinAmount, cfg.Intake.MaxFieldLength, cfg.Intake.AllowSelfSend)
	}
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := Default()
	cfg.Hasher = " SHA3 "
	cfg.Storage.Backend = ""
	cfg.Intake.Producer = false
	cfg.Intake.From = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Hasher != "sha3" {
		t.Errorf("hasher = %q, want sha3", cfg.Hasher)
	}
	if cfg.Storage.Backend != BackendBadger {
		t.Errorf("backend = %q, want badger", cfg.Storage.Backend)
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"--hasher=text", "--producer=false", "--rpc-port=0", "--duration=3s", "--storage", "memory", "--reset-blocks"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	cfg := Default()
	ApplyFlags(cfg, f)
	if cfg.Hasher != "text" {
		t.Errorf("hasher = %q", cfg.Hasher)
	}
	if cfg.Intake.Producer {
		t.Error("producer should be disabled")
	}
	if cfg.RPC.Port != 0 {
		t.Errorf("explicit --rpc-port=0 should override default, got %d", cfg.RPC.Port)
	}
	if cfg.Duration != 3*time.Second {
		t.Errorf("duration = %v", cfg.Duration)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if !cfg.Storage.Reset {
		t.Error("--reset-blocks should set Storage.Reset")
	}
	// Unset flags leave defaults alone.
	if !cfg.RPC.Enabled || cfg.Intake.From != "Alice" {
		t.Error("unset flags changed defaults")
	}
}

func TestParseFlags_StrayFlag(t *testing.T) {
	if _, err := ParseFlags([]string{"extra", "--hasher=text"}); err == nil {
		t.Error("expected error for flag after positional argument")
	}
	if _, err := ParseFlags([]string{"--no-such-flag"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()

	// First run writes the default config file.
	cfg, _, err := Load([]string{"--datadir", dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(cfg.ConfigFile()); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if _, err := os.Stat(cfg.BlocksDir()); err != nil {
		t.Fatalf("blocks dir not created: %v", err)
	}

	// File overrides defaults; flags override file.
	conf := "hasher = sha256\nintake.max_block_txs = 50\n"
	if err := os.WriteFile(cfg.ConfigFile(), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, _, err = Load([]string{"--datadir", dir, "--hasher", "sha3"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Hasher != "sha3" {
		t.Errorf("flag should win: hasher = %q", cfg.Hasher)
	}
	if cfg.Intake.MaxBlockTxs != 50 {
		t.Errorf("file should override default: max_block_txs = %d", cfg.Intake.MaxBlockTxs)
	}
}

func TestLoad_Help(t *testing.T) {
	cfg, f, err := Load([]string{"--help"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != nil || !f.Help {
		t.Error("help should return flags only")
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txroot.conf")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatal(err)
	}
	values, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	cfg.Hasher = ""
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatal(err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config file should be valid: %v", err)
	}
	if cfg.Hasher != "blake3" {
		t.Errorf("hasher = %q", cfg.Hasher)
	}
}
