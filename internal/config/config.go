// Package config defines the top-level configuration for the brickvest
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BRICKVEST_* environment variables.
type Config struct {
	Network      NetworkConfig      `toml:"network"`
	WalletBridge WalletBridgeConfig `toml:"walletbridge"`
	KYCGate      KYCGateConfig      `toml:"kycgate"`
	Offerings    OfferingsConfig    `toml:"offerings"`
	Chain        ChainConfig        `toml:"chain"`
	Database     DatabaseConfig     `toml:"database"`
	Redis        RedisConfig        `toml:"redis"`
	S3           S3Config           `toml:"s3"`
	Purchase     PurchaseConfig     `toml:"purchase"`
	Server       ServerConfig       `toml:"server"`
	LogLevel     string             `toml:"log_level"`
}

// NetworkConfig holds the target network descriptor and the reconciler's
// settle delay.
type NetworkConfig struct {
	Target      domain.NetworkDescriptor `toml:"target"`
	SettleDelay duration                 `toml:"settle_delay"`
	PollEvery   duration                 `toml:"poll_every"`
}

// WalletBridgeConfig holds the wallet bridge endpoint.
type WalletBridgeConfig struct {
	BaseURL string `toml:"base_url"`
}

// KYCGateConfig holds the identity gateway endpoint and credentials.
type KYCGateConfig struct {
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
}

// OfferingsConfig holds the property offerings API endpoint.
type OfferingsConfig struct {
	BaseURL string `toml:"base_url"`
}

// ChainConfig selects the transaction submitter and its parameters. Mode
// "simulated" uses the in-process simulator; "relayer" uses the
// HMAC-authenticated HTTP relayer.
type ChainConfig struct {
	Mode                string   `toml:"mode"`
	RelayerURL          string   `toml:"relayer_url"`
	RelayerKey          string   `toml:"relayer_key"`
	RelayerSecret       string   `toml:"relayer_secret"`
	EncryptedSecretPath string   `toml:"encrypted_secret_path"`
	SecretPassword      string   `toml:"secret_password"`
	SubmitLatency       duration `toml:"submit_latency"`
	ConfirmLatency      duration `toml:"confirm_latency"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for receipt
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PurchaseConfig tunes the purchase lifecycle service.
type PurchaseConfig struct {
	PollInterval duration `toml:"poll_interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	ApiKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. The
// target network defaults to Base Sepolia, the testnet the platform launches
// on.
func Defaults() Config {
	return Config{
		Network: NetworkConfig{
			Target: domain.NetworkDescriptor{
				ChainID: 84532,
				Name:    "Base Sepolia",
				Currency: domain.NativeCurrency{
					Name:     "Sepolia Ether",
					Symbol:   "ETH",
					Decimals: 18,
				},
				RPCURLs:     []string{"https://sepolia.base.org"},
				ExplorerURL: "https://sepolia.basescan.org",
				IconURL:     "https://assets.brickvest.io/networks/base.svg",
			},
			SettleDelay: duration{time.Second},
			PollEvery:   duration{2 * time.Second},
		},
		WalletBridge: WalletBridgeConfig{
			BaseURL: "http://localhost:8545",
		},
		KYCGate: KYCGateConfig{
			BaseURL: "http://localhost:8090",
		},
		Offerings: OfferingsConfig{
			BaseURL: "http://localhost:8091",
		},
		Chain: ChainConfig{
			Mode:           "simulated",
			SubmitLatency:  duration{2 * time.Second},
			ConfirmLatency: duration{5 * time.Second},
		},
		Database: DatabaseConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "brickvest",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "brickvest-receipts",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Purchase: PurchaseConfig{
			PollInterval: duration{2 * time.Second},
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		LogLevel: "info",
	}
}

// validChainModes enumerates the accepted values for ChainConfig.Mode.
var validChainModes = map[string]bool{
	"simulated": true,
	"relayer":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Network: the target descriptor must be complete or the reconciler
	// cannot register it in a wallet.
	if err := c.Network.Target.Validate(); err != nil {
		errs = append(errs, "network: target descriptor is incomplete (chain_id, name, currency, and rpc_urls are all required)")
	}
	if c.Network.SettleDelay.Duration < 0 {
		errs = append(errs, "network: settle_delay must not be negative")
	}
	if c.Network.PollEvery.Duration <= 0 {
		errs = append(errs, "network: poll_every must be positive")
	}

	// Endpoints
	if c.WalletBridge.BaseURL == "" {
		errs = append(errs, "walletbridge: base_url must not be empty")
	}
	if c.KYCGate.BaseURL == "" {
		errs = append(errs, "kycgate: base_url must not be empty")
	}
	if c.Offerings.BaseURL == "" {
		errs = append(errs, "offerings: base_url must not be empty")
	}

	// Chain
	if !validChainModes[strings.ToLower(c.Chain.Mode)] {
		errs = append(errs, fmt.Sprintf("chain: unknown mode %q (valid: simulated, relayer)", c.Chain.Mode))
	}
	if strings.ToLower(c.Chain.Mode) == "relayer" {
		if c.Chain.RelayerURL == "" {
			errs = append(errs, "chain: relayer_url is required for relayer mode")
		}
		if c.Chain.RelayerKey == "" {
			errs = append(errs, "chain: relayer_key is required for relayer mode")
		}
		if c.Chain.RelayerSecret == "" && c.Chain.EncryptedSecretPath == "" {
			errs = append(errs, "chain: either relayer_secret or encrypted_secret_path must be set for relayer mode")
		}
		if c.Chain.EncryptedSecretPath != "" && c.Chain.SecretPassword == "" {
			errs = append(errs, "chain: secret_password is required when encrypted_secret_path is set")
		}
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Purchase
	if c.Purchase.PollInterval.Duration <= 0 {
		errs = append(errs, "purchase: poll_interval must be positive")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
