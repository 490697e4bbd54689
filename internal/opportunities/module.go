// Package opportunities provides the standalone opportunity bounded
// context module: the second record store of the valuation engine.
package opportunities

import (
	"fieldsales_backend/internal/activities/cache"
	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/internal/activities/ports"
	"fieldsales_backend/internal/events"
	apphttp "fieldsales_backend/internal/http"
	"fieldsales_backend/internal/opportunities/handler"
	"fieldsales_backend/internal/opportunities/repository"
	"fieldsales_backend/internal/opportunities/service"
	"fieldsales_backend/platform/config"
	"fieldsales_backend/platform/logger"
	"fieldsales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the opportunities bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the opportunities module.
func NewModule(
	pool *pgxpool.Pool,
	cacheStore *cache.Store,
	bus events.Bus,
	val *validator.Validator,
	cfg config.EngineConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cacheStore, bus, log)
	h := handler.New(svc, val, normalize.New(cfg.GetPhoneRegion()))

	return &Module{handler: h, svc: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "opportunities"
}

// Reader exposes the store to the activities module's reconciliation
// port.
func (m *Module) Reader() ports.OpportunityReader {
	return m.repo
}

// RegisterRoutes mounts opportunities routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/opportunities")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
