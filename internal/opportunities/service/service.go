// Package service implements the standalone opportunity use cases.
package service

import (
	"context"
	"time"

	"fieldsales_backend/internal/activities/cache"
	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/events"
	"fieldsales_backend/internal/opportunities/repository"
	"fieldsales_backend/platform/logger"

	"github.com/google/uuid"
)

// Service owns reads and the single mutation of the opportunity store.
// Every mutation is announced on the event bus so the valuation engine
// can invalidate its reconciled aggregates.
type Service struct {
	repo  *repository.Repo
	cache *cache.Store
	bus   events.Bus
	log   *logger.Logger
}

// New creates the opportunities service.
func New(repo *repository.Repo, cacheStore *cache.Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: cacheStore, bus: bus, log: log}
}

// List returns the full opportunity set for a branch and period,
// cache-first.
func (s *Service) List(ctx context.Context, branch string, from, to time.Time) ([]repository.Record, error) {
	key := domain.Filter{From: from, To: to, Branch: branch}.CacheKey()

	var cached []repository.Record
	if s.cache.Get(ctx, cache.ViewOpportunities, key, &cached) {
		return cached, nil
	}

	records, err := s.repo.List(ctx, branch, from, to)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.ViewOpportunities, key, records)
	return records, nil
}

// Get loads one opportunity.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Record, error) {
	return s.repo.Get(ctx, id)
}

// Update applies a status and selection edit, publishes the change
// synchronously and returns the updated record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in repository.UpdateInput) (repository.Record, error) {
	result, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return repository.Record{}, err
	}

	ev := events.OpportunityUpdated{
		BaseEvent:     events.NewBaseEvent(),
		OpportunityID: result.OpportunityID,
		TaskID:        result.TaskID,
		Branch:        result.Branch,
		OldStatus:     result.OldStatusLabel,
		NewStatus:     result.NewStatusLabel,
	}
	if err := s.bus.PublishSync(ctx, ev); err != nil {
		s.log.Error("publish opportunity update", "opportunityId", id, "error", err)
	}

	return s.repo.Get(ctx, id)
}
