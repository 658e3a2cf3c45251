package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(84532), cfg.Network.Target.ChainID)
	assert.Equal(t, time.Second, cfg.Network.SettleDelay.Duration)
	assert.Equal(t, "simulated", cfg.Chain.Mode)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"unknown chain mode", func(c *Config) { c.Chain.Mode = "mainnet" }},
		{"partial network descriptor", func(c *Config) { c.Network.Target.RPCURLs = nil }},
		{"zero chain id", func(c *Config) { c.Network.Target.ChainID = 0 }},
		{"empty walletbridge url", func(c *Config) { c.WalletBridge.BaseURL = "" }},
		{"negative settle delay", func(c *Config) { c.Network.SettleDelay.Duration = -time.Second }},
		{"zero poll interval", func(c *Config) { c.Purchase.PollInterval.Duration = 0 }},
		{"bad server port", func(c *Config) { c.Server.Port = 70000 }},
		{"pool min exceeds max", func(c *Config) {
			c.Database.PoolMinConns = 20
			c.Database.PoolMaxConns = 10
		}},
		{"relayer mode without url", func(c *Config) { c.Chain.Mode = "relayer" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidateRelayerMode(t *testing.T) {
	cfg := Defaults()
	cfg.Chain.Mode = "relayer"
	cfg.Chain.RelayerURL = "https://relayer.brickvest.io"
	cfg.Chain.RelayerKey = "svc-key"
	cfg.Chain.RelayerSecret = "secret"

	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	content := `
log_level = "debug"

[network]
settle_delay = "250ms"

[network.target]
chain_id = 8453
name = "Base"
rpc_urls = ["https://mainnet.base.org"]
explorer_url = "https://basescan.org"

[network.target.currency]
name = "Ether"
symbol = "ETH"
decimals = 18

[server]
port = 9000
`
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(8453), cfg.Network.Target.ChainID)
	assert.Equal(t, 250*time.Millisecond, cfg.Network.SettleDelay.Duration)
	assert.Equal(t, 9000, cfg.Server.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	t.Setenv("BRICKVEST_NETWORK_CHAIN_ID", "10")
	t.Setenv("BRICKVEST_NETWORK_SETTLE_DELAY", "3s")
	t.Setenv("BRICKVEST_DATABASE_PASSWORD", "hunter2")
	t.Setenv("BRICKVEST_SERVER_CORS_ORIGINS", "https://app.brickvest.io, https://staging.brickvest.io")
	t.Setenv("BRICKVEST_CHAIN_MODE", "relayer")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(10), cfg.Network.Target.ChainID)
	assert.Equal(t, 3*time.Second, cfg.Network.SettleDelay.Duration)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, []string{"https://app.brickvest.io", "https://staging.brickvest.io"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "relayer", cfg.Chain.Mode)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.KYCGate.ApiKey = "kyc-key"
	cfg.Chain.RelayerSecret = "relayer-secret"
	cfg.Database.Password = "db-pass"
	cfg.Redis.Password = "redis-pass"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.ApiKey = "api-key"

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.KYCGate.ApiKey)
	assert.Equal(t, "***", out.Chain.RelayerSecret)
	assert.Equal(t, "***", out.Database.Password)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Server.ApiKey)

	// Original is untouched.
	assert.Equal(t, "db-pass", cfg.Database.Password)

	// Non-secret fields pass through.
	assert.Equal(t, cfg.Network.Target.ChainID, out.Network.Target.ChainID)
}

func TestRedactedConfigLeavesEmptyFieldsEmpty(t *testing.T) {
	cfg := Defaults()
	out := RedactedConfig(&cfg)
	assert.Empty(t, out.Server.ApiKey)
}
