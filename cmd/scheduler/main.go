package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	actcache "fieldsales_backend/internal/activities/cache"
	"fieldsales_backend/internal/activities/normalize"
	actrepo "fieldsales_backend/internal/activities/repository"
	actservice "fieldsales_backend/internal/activities/service"
	"fieldsales_backend/internal/events"
	opprepo "fieldsales_backend/internal/opportunities/repository"
	"fieldsales_backend/internal/scheduler"
	"fieldsales_backend/platform/config"
	"fieldsales_backend/platform/db"
	"fieldsales_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.RedisURL == "" {
		log.Error("REDIS_URL is required for the scheduler")
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	cacheStore, err := actcache.NewFromURL(cfg.RedisURL, cfg.CacheTTL, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = cacheStore.Close() }()

	eventBus := events.NewInMemoryBus(log)

	// Worker-side engine wiring (no HTTP handlers required).
	engine := actservice.New(
		actrepo.New(pool),
		opprepo.New(pool),
		normalize.New(cfg.PhoneRegion),
		cacheStore,
		eventBus,
		log,
		cfg.PageSize,
	)

	worker, err := scheduler.NewWorker(cfg, engine, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	go runFunnelWarmLoop(ctx, cfg, client, log)

	worker.Run(ctx)
}

// runFunnelWarmLoop periodically enqueues one warm job per configured
// branch. An empty branch list warms the all-branches funnel.
func runFunnelWarmLoop(ctx context.Context, cfg *config.Config, client scheduler.FunnelWarmer, log *logger.Logger) {
	interval := cfg.FunnelWarmInterval
	if interval <= 0 {
		return
	}

	branches := cfg.FunnelWarmBranches
	if len(branches) == 0 {
		branches = []string{""}
	}

	enqueue := func() {
		for _, branch := range branches {
			payload := scheduler.FunnelWarmPayload{
				Branch:     branch,
				PeriodDays: cfg.FunnelWarmPeriodDays,
			}
			if err := client.EnqueueFunnelWarm(ctx, payload); err != nil {
				log.Warn("funnel warm enqueue failed", "branch", branch, "error", err)
			}
		}
	}

	enqueue()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueue()
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
