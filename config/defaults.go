package config

import "time"

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Hasher:  "blake3",
		Intake: IntakeConfig{
			Producer:        true,
			From:            "Alice",
			To:              "Bob",
			StartAmount:     100,
			ProduceInterval: 500 * time.Millisecond,
			ChannelSize:     100,
			PoolSize:        10_000,
			MonitorInterval: time.Second,
			BlockInterval:   2 * time.Second,
			MaxBlockTxs:     1000,
			MaxFieldLength:  DefaultPolicyFieldLength,
			AllowSelfSend:   true,
		},
		Storage: StorageConfig{
			Backend: BackendBadger,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8645,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
