package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/htc101524/BoardGameMondays-sub002/cache"
	"github.com/htc101524/BoardGameMondays-sub002/config"
	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/metrics"
	"github.com/htc101524/BoardGameMondays-sub002/notifier"
	"github.com/htc101524/BoardGameMondays-sub002/repository"
	"github.com/htc101524/BoardGameMondays-sub002/service"
)

// App bundles the wired engine services. The HTTP/UI layer lives outside this
// module and embeds the engine through this type.
type App struct {
	Lifecycle  service.LifecycleService
	Sessions   service.SessionService
	Odds       service.OddsService
	Betting    service.BettingService
	Resolution service.ResolutionService
	EventBus   *events.Bus
	Wallet     service.Wallet
	UowFactory service.UnitOfWorkFactory
}

// NewApp wires the engine services against a database connection. oddsCache
// may be nil to serve all odds reads from the database.
func NewApp(db *database.DB, oddsCache service.OddsCache) *App {
	cfg := config.Get()
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	wallet := repository.NewWalletService(db)

	return &App{
		Lifecycle:  service.NewLifecycleService(uowFactory, wallet, cfg.StartingCoins),
		Sessions:   service.NewSessionService(uowFactory),
		Odds:       service.NewOddsService(uowFactory, oddsCache),
		Betting:    service.NewBettingService(uowFactory),
		Resolution: service.NewResolutionService(uowFactory, wallet, oddsCache),
		EventBus:   eventBus,
		Wallet:     wallet,
		UowFactory: uowFactory,
	}
}

// Run initializes the engine and blocks until the context is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()

	log.WithField("environment", cfg.Environment).Info("Starting wagering engine")

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var oddsCache service.OddsCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		oddsCache = cache.NewOddsCache(rdb, cfg.OddsCacheTTL)
		log.WithField("addr", cfg.RedisAddr).Info("Odds cache enabled")
	} else {
		log.Info("REDIS_ADDR not set, odds cache disabled")
	}

	app := NewApp(db, oddsCache)

	metrics.Init()
	metrics.SubscribeToEvents(app.EventBus)
	metricsSrv := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		return db.Ping(ctx)
	})
	log.WithField("port", cfg.MetricsPort).Info("Metrics server started")

	if cfg.DiscordToken != "" {
		discordNotifier, err := notifier.New(notifier.Config{
			Token:     cfg.DiscordToken,
			ChannelID: cfg.DiscordChannelID,
		}, app.UowFactory, app.EventBus)
		if err != nil {
			return fmt.Errorf("failed to initialize Discord notifier: %w", err)
		}
		defer discordNotifier.Close()
	} else {
		log.Info("DISCORD_TOKEN not set, announcements disabled")
	}

	creditWorker := service.NewCreditWorker(app.UowFactory, app.Wallet, app.EventBus)
	go creditWorker.Run(ctx)

	log.Info("Wagering engine is running")
	<-ctx.Done()

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Metrics server shutdown failed")
	}

	return nil
}
