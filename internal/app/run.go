package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brickvest-labs/brickvest/internal/domain"
	"github.com/brickvest-labs/brickvest/internal/server"
	"github.com/brickvest-labs/brickvest/internal/server/handler"
	"github.com/brickvest-labs/brickvest/internal/server/ws"
	"github.com/brickvest-labs/brickvest/internal/service"
)

// shutdownGrace bounds how long the HTTP server waits for in-flight requests
// after the run context is cancelled.
const shutdownGrace = 10 * time.Second

// run builds the service layer on top of the wired dependencies and starts
// the HTTP server, the WebSocket hub, and the wallet observation loop. It
// blocks until the context is cancelled or a goroutine fails.
func (a *App) run(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	// --- Services ---
	evaluator := service.NewEvaluator()

	reconciler, err := service.NewReconciler(
		deps.Wallet,
		a.cfg.Network.Target,
		a.cfg.Network.SettleDelay.Duration,
		deps.AuditStore,
		deps.SignalBus,
		a.logger,
	)
	if err != nil {
		return err
	}

	propertySvc := service.NewPropertyService(deps.Offerings, deps.PropertyCache, a.logger)
	identitySvc := service.NewIdentityFactsService(deps.KYCGate, a.logger)

	purchaseSvc := service.NewPurchaseService(
		evaluator,
		deps.Wallet,
		propertySvc,
		identitySvc,
		deps.Submitter,
		deps.PurchaseStore,
		deps.AuditStore,
		deps.SignalBus,
		deps.RateLimiter,
		a.logger,
	)
	purchaseSvc.SetPollInterval(a.cfg.Purchase.PollInterval.Duration)
	if deps.Archiver != nil {
		purchaseSvc.WithArchiver(deps.Archiver)
	}

	// --- WebSocket hub ---
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		TargetNetwork: a.cfg.Network.Target.ChainID,
		StartedAt:     time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// --- HTTP server ---
	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(a.logger),
		Network:    handler.NewNetworkHandler(reconciler, deps.Wallet, a.cfg.Network.Target, a.logger),
		Properties: handler.NewPropertyHandler(propertySvc, deps.KYCGate, evaluator, a.logger),
		Purchases:  handler.NewPurchaseHandler(purchaseSvc, a.logger),
		KYC:        handler.NewKYCHandler(deps.KYCGate, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.ApiKey,
		Limiter:     deps.RateLimiter,
		RateLimit:   120,
		RateWindow:  time.Minute,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// --- Wallet observation loop ---
	g.Go(func() error {
		return a.observeWallet(ctx, deps.Wallet, reconciler)
	})

	return g.Wait()
}

// observeWallet polls the wallet bridge for fresh snapshots and feeds them to
// the reconciler. Poll failures are logged and skipped; the next tick retries.
func (a *App) observeWallet(ctx context.Context, wallet domain.WalletProvider, reconciler *service.Reconciler) error {
	ticker := time.NewTicker(a.cfg.Network.PollEvery.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			facts, err := wallet.GetWalletFacts(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "wallet poll failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			reconciler.Observe(ctx, facts)
		}
	}
}
