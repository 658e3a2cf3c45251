package app

import (
	"context"
	"fmt"
	"strings"

	s3blob "github.com/brickvest-labs/brickvest/internal/blob/s3"
	"github.com/brickvest-labs/brickvest/internal/cache/redis"
	"github.com/brickvest-labs/brickvest/internal/config"
	"github.com/brickvest-labs/brickvest/internal/crypto"
	"github.com/brickvest-labs/brickvest/internal/domain"
	"github.com/brickvest-labs/brickvest/internal/platform/chain"
	"github.com/brickvest-labs/brickvest/internal/platform/kycgate"
	"github.com/brickvest-labs/brickvest/internal/platform/offerings"
	"github.com/brickvest-labs/brickvest/internal/platform/walletbridge"
	"github.com/brickvest-labs/brickvest/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// needs to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	PurchaseStore domain.PurchaseStore
	AuditStore    domain.AuditStore

	// Caches
	PropertyCache domain.PropertyCache
	RateLimiter   domain.RateLimiter
	SignalBus     domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.ReceiptArchiver

	// Platform clients
	Wallet    domain.WalletProvider
	KYCGate   *kycgate.Client
	Offerings domain.PropertyService
	Submitter domain.TxSubmitter
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	// Run migrations if enabled.
	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PurchaseStore = postgres.NewPurchaseStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PropertyCache = redis.NewPropertyCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (receipt archival is optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewReceiptArchiver(deps.BlobWriter)
	}

	// --- Platform clients ---
	deps.Wallet = walletbridge.New(cfg.WalletBridge.BaseURL)
	deps.KYCGate = kycgate.New(cfg.KYCGate.BaseURL, cfg.KYCGate.ApiKey)
	deps.Offerings = offerings.New(cfg.Offerings.BaseURL)

	// --- Transaction submitter ---
	switch strings.ToLower(cfg.Chain.Mode) {
	case "relayer":
		secret, err := crypto.LoadSecret(crypto.SecretConfig{
			RawSecret:           cfg.Chain.RelayerSecret,
			EncryptedSecretPath: cfg.Chain.EncryptedSecretPath,
			SecretPassword:      cfg.Chain.SecretPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: relayer secret: %w", err)
		}
		auth := &crypto.HMACAuth{
			Key:    cfg.Chain.RelayerKey,
			Secret: secret,
		}
		deps.Submitter = chain.NewRelayer(cfg.Chain.RelayerURL, auth)
	default:
		deps.Submitter = chain.NewSimulator(chain.SimulatorConfig{
			SubmitLatency:  cfg.Chain.SubmitLatency.Duration,
			ConfirmLatency: cfg.Chain.ConfirmLatency.Duration,
		})
	}

	return deps, cleanup, nil
}
