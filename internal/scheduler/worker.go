package scheduler

import (
	"context"
	"fmt"
	"time"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/service"
	"fieldsales_backend/platform/config"
	"fieldsales_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine *service.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, engine *service.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskFunnelWarm, w.handleFunnelWarm)

	return w, nil
}

// handleFunnelWarm recomputes and caches the funnel for one branch over
// the trailing period, bypassing any cached value.
func (w *Worker) handleFunnelWarm(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFunnelWarmPayload(task)
	if err != nil {
		return err
	}

	days := payload.PeriodDays
	if days < 1 {
		days = 30
	}
	// Day boundaries, so warmed keys line up with date-only queries.
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	filter := domain.Filter{
		From:   day.AddDate(0, 0, -days),
		To:     day,
		Branch: payload.Branch,
	}

	fn, err := w.engine.WarmFunnel(ctx, filter)
	if err != nil {
		return err
	}

	w.log.Info("funnel warmed",
		"branch", payload.Branch,
		"periodDays", days,
		"potentialCents", fn.PotentialCents,
		"closedCents", fn.ClosedCents,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
