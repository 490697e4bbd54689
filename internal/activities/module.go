// Package activities provides the valuation engine bounded context: the
// reconciled activity feed, client rollups and the sales funnel.
package activities

import (
	"context"

	"fieldsales_backend/internal/activities/cache"
	"fieldsales_backend/internal/activities/handler"
	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/internal/activities/ports"
	"fieldsales_backend/internal/activities/repository"
	"fieldsales_backend/internal/activities/service"
	"fieldsales_backend/internal/events"
	apphttp "fieldsales_backend/internal/http"
	"fieldsales_backend/platform/config"
	"fieldsales_backend/platform/logger"
	"fieldsales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the activities bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates and initializes the activities module. The
// opportunity reader comes from the opportunities module, so this module
// never touches that store directly.
func NewModule(
	pool *pgxpool.Pool,
	opps ports.OpportunityReader,
	cacheStore *cache.Store,
	bus events.Bus,
	val *validator.Validator,
	cfg config.EngineConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	norm := normalize.New(cfg.GetPhoneRegion())
	svc := service.New(repo, opps, norm, cacheStore, bus, log, cfg.GetPageSize())
	h := handler.New(svc, val)

	return &Module{handler: h, svc: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "activities"
}

// Service returns the engine service for external callers (scheduler).
func (m *Module) Service() *service.Service {
	return m.svc
}

// RegisterRoutes mounts activities routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/activities")
	m.handler.RegisterRoutes(group)
}

// RegisterHandlers subscribes the cache invalidation coordinator to every
// mutation event that can change a reconciled aggregate, regardless of
// which store was edited.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.OpportunityUpdated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.OpportunityUpdated); ok {
			m.svc.InvalidateFor(ctx, e.Branch)
		}
		return nil
	}))
	bus.Subscribe(events.TaskStatusChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.TaskStatusChanged); ok {
			m.svc.InvalidateFor(ctx, e.Branch)
		}
		return nil
	}))
	bus.Subscribe(events.ActivityDeleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ActivityDeleted); ok {
			m.svc.InvalidateFor(ctx, e.Branch)
		}
		return nil
	}))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
