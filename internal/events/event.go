// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"fieldsales_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Opportunity Domain Events
// =============================================================================

// OpportunityUpdated is published when a standalone opportunity's status
// or line items change. The activities module reacts by invalidating
// every aggregate cache: the reconciled views depend on both stores.
type OpportunityUpdated struct {
	BaseEvent
	OpportunityID uuid.UUID  `json:"opportunityId"`
	TaskID        *uuid.UUID `json:"taskId,omitempty"`
	Branch        string     `json:"branch"`
	OldStatus     string     `json:"oldStatus"`
	NewStatus     string     `json:"newStatus"`
}

func (e OpportunityUpdated) EventName() string { return "opportunities.updated" }

// =============================================================================
// Activity Domain Events
// =============================================================================

// TaskStatusChanged is published when a consultant task's sales state is
// edited through the reconciliation flow.
type TaskStatusChanged struct {
	BaseEvent
	TaskID     uuid.UUID `json:"taskId"`
	Branch     string    `json:"branch"`
	OldOutcome string    `json:"oldOutcome"`
	NewOutcome string    `json:"newOutcome"`
}

func (e TaskStatusChanged) EventName() string { return "activities.task.status_changed" }

// ActivityDeleted is published when a task-backed activity is removed
// from the store.
type ActivityDeleted struct {
	BaseEvent
	ActivityID uuid.UUID `json:"activityId"`
	Branch     string    `json:"branch"`
}

func (e ActivityDeleted) EventName() string { return "activities.deleted" }
