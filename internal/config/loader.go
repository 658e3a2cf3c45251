package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BRICKVEST_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BRICKVEST_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Network ──
	setInt64(&cfg.Network.Target.ChainID, "BRICKVEST_NETWORK_CHAIN_ID")
	setStr(&cfg.Network.Target.Name, "BRICKVEST_NETWORK_NAME")
	setStringSlice(&cfg.Network.Target.RPCURLs, "BRICKVEST_NETWORK_RPC_URLS")
	setStr(&cfg.Network.Target.ExplorerURL, "BRICKVEST_NETWORK_EXPLORER_URL")
	setDuration(&cfg.Network.SettleDelay, "BRICKVEST_NETWORK_SETTLE_DELAY")
	setDuration(&cfg.Network.PollEvery, "BRICKVEST_NETWORK_POLL_EVERY")

	// ── Wallet bridge ──
	setStr(&cfg.WalletBridge.BaseURL, "BRICKVEST_WALLETBRIDGE_BASE_URL")

	// ── KYC gate ──
	setStr(&cfg.KYCGate.BaseURL, "BRICKVEST_KYCGATE_BASE_URL")
	setStr(&cfg.KYCGate.ApiKey, "BRICKVEST_KYCGATE_API_KEY")

	// ── Offerings ──
	setStr(&cfg.Offerings.BaseURL, "BRICKVEST_OFFERINGS_BASE_URL")

	// ── Chain ──
	setStr(&cfg.Chain.Mode, "BRICKVEST_CHAIN_MODE")
	setStr(&cfg.Chain.RelayerURL, "BRICKVEST_CHAIN_RELAYER_URL")
	setStr(&cfg.Chain.RelayerKey, "BRICKVEST_CHAIN_RELAYER_KEY")
	setStr(&cfg.Chain.RelayerSecret, "BRICKVEST_CHAIN_RELAYER_SECRET")
	setStr(&cfg.Chain.EncryptedSecretPath, "BRICKVEST_CHAIN_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Chain.SecretPassword, "BRICKVEST_CHAIN_SECRET_PASSWORD")
	setDuration(&cfg.Chain.SubmitLatency, "BRICKVEST_CHAIN_SUBMIT_LATENCY")
	setDuration(&cfg.Chain.ConfirmLatency, "BRICKVEST_CHAIN_CONFIRM_LATENCY")

	// ── Database ──
	setStr(&cfg.Database.DSN, "BRICKVEST_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "BRICKVEST_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "BRICKVEST_DATABASE_HOST")
	setInt(&cfg.Database.Port, "BRICKVEST_DATABASE_PORT")
	setStr(&cfg.Database.Database, "BRICKVEST_DATABASE_NAME")
	setStr(&cfg.Database.User, "BRICKVEST_DATABASE_USER")
	setStr(&cfg.Database.Password, "BRICKVEST_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "BRICKVEST_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "BRICKVEST_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "BRICKVEST_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "BRICKVEST_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BRICKVEST_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BRICKVEST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BRICKVEST_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BRICKVEST_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BRICKVEST_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BRICKVEST_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "BRICKVEST_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BRICKVEST_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BRICKVEST_S3_REGION")
	setStr(&cfg.S3.Bucket, "BRICKVEST_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BRICKVEST_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BRICKVEST_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BRICKVEST_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BRICKVEST_S3_FORCE_PATH_STYLE")

	// ── Purchase ──
	setDuration(&cfg.Purchase.PollInterval, "BRICKVEST_PURCHASE_POLL_INTERVAL")

	// ── Server ──
	setInt(&cfg.Server.Port, "BRICKVEST_SERVER_PORT")
	setStr(&cfg.Server.ApiKey, "BRICKVEST_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "BRICKVEST_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "BRICKVEST_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
