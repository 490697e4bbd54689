// Package handler exposes the opportunities module over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/internal/opportunities/service"
	"fieldsales_backend/internal/opportunities/transport"
	"fieldsales_backend/platform/httpkit"
	"fieldsales_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid opportunity ID"
	msgInvalidPeriod    = "invalid period"
)

// Handler handles HTTP requests for standalone opportunities.
type Handler struct {
	svc  *service.Service
	val  *validator.Validator
	norm *normalize.Normalizer
}

// New creates a new opportunities handler.
func New(svc *service.Service, val *validator.Validator, norm *normalize.Normalizer) *Handler {
	return &Handler{svc: svc, val: val, norm: norm}
}

// RegisterRoutes mounts the opportunities routes on the given group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
}

// List serves the full opportunity set for a branch and period.
// GET /api/v1/opportunities
func (h *Handler) List(c *gin.Context) {
	var q transport.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	from, to, err := q.Period()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPeriod, nil)
		return
	}

	branch := q.Branch
	// Non-managers only see their own branch.
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() && branch == "" && !identity.HasRole("manager") {
		branch = identity.Branch()
	}

	records, err := h.svc.List(c.Request.Context(), branch, from, to)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewListResponse(records, h.norm))
}

// Get serves one opportunity.
// GET /api/v1/opportunities/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewOpportunityResponse(rec, h.norm))
}

// Update applies a status and selection edit.
// PUT /api/v1/opportunities/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	rec, err := h.svc.Update(c.Request.Context(), id, req.Input())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewOpportunityResponse(rec, h.norm))
}
