package config

import (
	"fmt"
	"math"
	"net/netip"
	"strings"
	"time"

	"github.com/Klingon-tech/txroot/pkg/merkle"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	cfg.Hasher = strings.ToLower(strings.TrimSpace(cfg.Hasher))
	if cfg.Hasher == "" {
		cfg.Hasher = merkle.NameBlake3
	}
	if _, err := merkle.HasherByName(cfg.Hasher); err != nil {
		return err
	}

	switch cfg.Storage.Backend {
	case "":
		cfg.Storage.Backend = BackendBadger
	case BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be %q or %q", BackendBadger, BackendMemory)
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}

	for _, entry := range cfg.RPC.AllowedIPs {
		if !validIPEntry(entry) {
			return fmt.Errorf("rpc.allowed: %q is not an IP address or CIDR range", entry)
		}
	}

	in := &cfg.Intake
	if in.MaxFieldLength < 1 || in.MaxFieldLength > MaxFieldLength {
		return fmt.Errorf("intake.max_field_length must be in range [1, %d]", MaxFieldLength)
	}
	if in.Producer {
		if in.From == "" || in.To == "" {
			return fmt.Errorf("intake.from and intake.to must be set when the producer is enabled")
		}
		if len(in.From) > in.MaxFieldLength || len(in.To) > in.MaxFieldLength {
			return fmt.Errorf("intake.from and intake.to must be at most intake.max_field_length (%d) bytes", in.MaxFieldLength)
		}
		if in.From == in.To && !in.AllowSelfSend {
			return fmt.Errorf("intake.from equals intake.to but intake.allow_self_send is off")
		}
		if in.StartAmount == math.MaxUint64 || in.StartAmount+1 < in.MinAmount {
			return fmt.Errorf("intake.start_amount %d produces amounts below intake.min_amount %d", in.StartAmount, in.MinAmount)
		}
		if err := positiveDuration("intake.produce_interval", in.ProduceInterval); err != nil {
			return err
		}
	}
	if in.ChannelSize < 1 {
		return fmt.Errorf("intake.channel_size must be at least 1")
	}
	if in.PoolSize < 1 {
		return fmt.Errorf("intake.pool_size must be at least 1")
	}
	if err := positiveDuration("intake.monitor_interval", in.MonitorInterval); err != nil {
		return err
	}
	if err := positiveDuration("intake.block_interval", in.BlockInterval); err != nil {
		return err
	}
	if in.MaxBlockTxs < 1 || in.MaxBlockTxs > MaxBlockTxs {
		return fmt.Errorf("intake.max_block_txs must be in range [1, %d]", MaxBlockTxs)
	}
	if in.TxTTL < 0 {
		return fmt.Errorf("intake.tx_ttl must not be negative")
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}

	return nil
}

// validIPEntry reports whether s is an IP address or CIDR range.
func validIPEntry(s string) bool {
	s = strings.TrimSpace(s)
	if _, err := netip.ParsePrefix(s); err == nil {
		return true
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

func positiveDuration(field string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}
