// Package handler exposes the activities module over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/service"
	"fieldsales_backend/internal/activities/transport"
	"fieldsales_backend/platform/httpkit"
	"fieldsales_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid activity ID"
	msgInvalidPeriod    = "invalid period"
)

// Handler handles HTTP requests for the reconciled activity views.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new activities handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the activities routes on the given group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("", h.Feed)
	g.GET("/clients", h.Clients)
	g.GET("/funnel", h.Funnel)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) bindFeedQuery(c *gin.Context) (transport.FeedQuery, domain.Filter, bool) {
	var q transport.FeedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return q, domain.Filter{}, false
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return q, domain.Filter{}, false
	}
	f, err := q.Filter()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPeriod, nil)
		return q, domain.Filter{}, false
	}
	// Non-managers only see their own branch.
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() && f.Branch == "" && !identity.HasRole("manager") {
		f.Branch = identity.Branch()
	}
	return q, f, true
}

// Feed serves the paginated reconciled activity feed.
// GET /api/v1/activities
func (h *Handler) Feed(c *gin.Context) {
	q, f, ok := h.bindFeedQuery(c)
	if !ok {
		return
	}

	snap, err := h.svc.Activities(c.Request.Context(), f, q.FeedMode())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewFeedResponse(snap))
}

// Clients serves the per-client rollup view.
// GET /api/v1/activities/clients
func (h *Handler) Clients(c *gin.Context) {
	q, f, ok := h.bindFeedQuery(c)
	if !ok {
		return
	}

	snap, err := h.svc.Clients(c.Request.Context(), f, q.FeedMode())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewClientsResponse(snap))
}

// Funnel serves the funnel metrics for a filter.
// GET /api/v1/activities/funnel
func (h *Handler) Funnel(c *gin.Context) {
	_, f, ok := h.bindFeedQuery(c)
	if !ok {
		return
	}

	fn, err := h.svc.Funnel(c.Request.Context(), f)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, fn)
}

// UpdateStatus edits the sales state of a task-backed activity.
// PATCH /api/v1/activities/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	change, err := h.svc.UpdateStatus(c.Request.Context(), id, req.SalesConfirmed, domain.Outcome(req.SalesOutcome))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.StatusChangeResponse{
		ID:         change.TaskID,
		Branch:     change.Branch,
		OldOutcome: change.OldOutcome,
		NewOutcome: change.NewOutcome,
	})
}

// Delete removes a task-backed activity.
// DELETE /api/v1/activities/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}
