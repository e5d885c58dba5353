package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/chutes"
	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/datura"
	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/httpserver"
	kafkaadapter "github.com/glory03023/datura-ai-fastapi-task/internal/adapter/kafka"
	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/metrics"
	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/postgres"
	redisadapter "github.com/glory03023/datura-ai-fastapi-task/internal/adapter/redis"
	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/substrate"
	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/wallet"
	"github.com/glory03023/datura-ai-fastapi-task/internal/app"
	"github.com/glory03023/datura-ai-fastapi-task/internal/auth"
	"github.com/glory03023/datura-ai-fastapi-task/internal/dividend"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/config"
	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/logging"
	"github.com/glory03023/datura-ai-fastapi-task/internal/sentiment"
	"github.com/glory03023/datura-ai-fastapi-task/internal/trading"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, reg prometheus.Registerer) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracer := postgres.NewMetricsTracer(metrics.NewDBMetrics(reg))
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// setupRedis only fails on a malformed URL. An unreachable server leaves the
// dividend cache degraded.
func setupRedis(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	client, err := redisadapter.NewClient(ctx, cfg.RedisURL, metrics.NewRedisMetrics(reg))
	if err != nil {
		slog.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	return client
}

// setupAuditLog records to postgres and, when brokers are configured, mirrors
// every action onto Kafka. The returned closer flushes the Kafka writer.
func setupAuditLog(cfg *config.Config, primary domain.AuditLog) (domain.AuditLog, func()) {
	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		return primary, func() {}
	}

	publisher := kafkaadapter.NewPublisher(kafkaadapter.NewWriter(brokers, cfg.KafkaTopic))
	slog.Info("Mirroring trading actions to Kafka", "brokers", brokers, "topic", cfg.KafkaTopic)

	closer := func() {
		if err := publisher.Close(); err != nil {
			slog.Error("Failed to close Kafka publisher", "error", err)
		}
	}
	return trading.NewMirroredAuditLog(primary, publisher), closer
}

// healthChecks gates readiness on Postgres only. Redis and the chain are
// reported as degraded: without them lookups are slower or read as absent.
// The chain check replays the last query outcome instead of dialing the node.
func healthChecks(pool *pgxpool.Pool, rdb *goredis.Client, dividends *dividend.Service) []httpserver.HealthCheck {
	return []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }, Degradable: true},
		{Name: "chain", Check: dividends.LedgerHealth, Degradable: true},
	}
}

func runGracefulShutdown(srv *httpserver.Server, stopRefresher context.CancelFunc, refresherDone <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopRefresher()
		<-refresherDone

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	reg := metrics.NewRegistry()

	pool := setupDB(cfg, reg)
	defer pool.Close()

	redisClient := setupRedis(context.Background(), cfg, reg)
	defer func() { _ = redisClient.Close() }()

	ledger := substrate.NewClient(substrate.Config{Endpoint: cfg.ChainEndpoint})
	cache := redisadapter.NewDividendCache(redisClient, metrics.NewCacheMetrics(reg))
	dividends := dividend.NewService(ledger, cache, dividend.Config{
		CacheTTL:          cfg.DividendCacheTTL,
		QueryTimeout:      cfg.LedgerQueryTimeout,
		FanoutMaxNetuid:   cfg.FanoutMaxNetuid,
		FanoutConcurrency: cfg.FanoutConcurrency,
	}, metrics.NewLedgerMetrics(reg))

	signalState := sentiment.NewSignal()
	refresher := sentiment.NewRefresher(
		datura.NewClient(cfg.DaturaBaseURL, cfg.DaturaAPIKey, cfg.HTTPClientTimeout, clock),
		chutes.NewClient(cfg.ChutesBaseURL, cfg.ChutesAPIKey, cfg.ChutesModel, cfg.HTTPClientTimeout),
		signalState,
		sentiment.RefresherConfig{
			Interval:         cfg.SentimentRefreshInterval,
			TextCount:        cfg.SentimentTextCount,
			WindowDays:       cfg.SentimentWindowDays,
			ScoreConcurrency: sentiment.DefaultRefresherConfig().ScoreConcurrency,
		},
		clock,
		metrics.NewSentimentMetrics(reg),
	)

	refresherCtx, stopRefresher := context.WithCancel(context.Background())
	refresherDone := make(chan struct{})
	go func() {
		defer close(refresherDone)
		refresher.Run(refresherCtx)
	}()

	tradingRepo := postgres.NewTradingActionRepo(pool)
	audit, closeAudit := setupAuditLog(cfg, tradingRepo)
	defer closeAudit()

	engine := trading.NewEngine(signalState, wallet.NewSimulated(), audit, clock, metrics.NewTradingMetrics(reg))

	appSvc := app.NewService(app.Deps{
		Users:          postgres.NewUserRepo(pool),
		Hasher:         auth.NewPasswordHasher(bcrypt.DefaultCost),
		Tokens:         auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, clock),
		Dividends:      dividends,
		Trader:         engine,
		Sentiment:      signalState,
		History:        tradingRepo,
		ValidateHotkey: substrate.ValidateAddress,
	})

	srv := httpserver.NewServer(cfg, appSvc, healthChecks(pool, redisClient, dividends),
		metrics.Handler(reg), metrics.NewHTTPMetrics(reg))

	done := runGracefulShutdown(srv, stopRefresher, refresherDone)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
