package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"runpay/internal/amqp"
	"runpay/internal/cache"
	"runpay/internal/cli"
	"runpay/internal/config"
	"runpay/internal/core"
	apphttp "runpay/internal/http"
	"runpay/internal/ledger"
	"runpay/internal/log"
	"runpay/internal/metrics"
	"runpay/internal/middleware/ratelimit"
	"runpay/internal/middleware/security"
	"runpay/internal/services"
	"runpay/internal/storage"

	"golang.org/x/sync/errgroup"
)

// observedPublisher counts every publish attempt.
type observedPublisher struct {
	next    services.Publisher
	metrics *metrics.Metrics
}

func (p observedPublisher) PublishActivity(ctx context.Context, e core.LogEntry) error {
	err := p.next.PublishActivity(ctx, e)
	p.metrics.ObservePublish(err)
	return err
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, false)
	logger = cli.SetupLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.GracefulShutdown(context.Background(), logger)
	defer stop()

	m := metrics.New()
	var ready func(context.Context) error
	seed, cleanup, err := cli.LoadSeed(ctx, cfg, logger, func(repo *storage.SQLiteRepository) {
		if err := m.RegisterDB(repo.DB(), "seed"); err != nil {
			logger.Warn("Failed to register database metrics", log.FieldError, err)
		}
		ready = func(ctx context.Context) error { return repo.DB().PingContext(ctx) }
	})
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer func() {
			if err := cleanup(); err != nil {
				logger.Warn("Seed backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	policy, err := ledger.ParsePolicy(cfg.UnderfundedPolicy)
	if err != nil {
		return err
	}
	figures := ledger.SummaryFigures{Payroll: cfg.SummaryPayroll, Vendors: cfg.SummaryVendors}

	summaries := cache.NewLRUCache[int64, core.SummaryReport](64, cfg.SummaryCacheTTL)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register("summaries", summaries)

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = observedPublisher{next: client, metrics: m}
		logger.Info("Activity publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Activity publishing disabled - no AMQP_URL provided")
	}

	console := services.NewConsole(ledger.NewState(seed, policy, figures), seed.Integrations, services.Options{
		Publisher: publisher,
		Observer:  m,
		Logger:    logger,
		Summaries: summaries,
	})

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Console:  console,
		Logger:   logger,
		Metrics:  m,
		Limiter:  limiter,
		Detector: security.NewDetector(m.Suspicious),
		Ready:    ready,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error { return caches.Run(gctx, time.Minute) })
	g.Go(func() error {
		logger.Info("Starting runpay server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"policy", string(policy),
			"employees", len(seed.Employees))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
