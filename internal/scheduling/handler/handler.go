package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fm_servicios_backend/internal/scheduling/repository"
	"fm_servicios_backend/internal/scheduling/service"
	"fm_servicios_backend/internal/scheduling/transport"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/httpkit"
	"fm_servicios_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidVisitID   = "invalid visit id"
	msgInvalidDate      = "invalid date"
)

// VisitDesk performs agenda writes that must respect the quote lifecycle.
type VisitDesk interface {
	BookVisit(ctx context.Context, req transport.CreateVisitRequest) (transport.VisitResponse, error)
	RescheduleVisit(ctx context.Context, visitID int64, req transport.UpdateVisitRequest) (transport.VisitResponse, error)
	CancelVisit(ctx context.Context, visitID int64) error
}

// Handler serves the staff agenda.
type Handler struct {
	svc  *service.Service
	val  *validator.Validator
	desk VisitDesk
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// SetDesk injects the lifecycle-aware writer for bookings, moves and
// cancellations.
func (h *Handler) SetDesk(desk VisitDesk) {
	h.desk = desk
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// List handles GET /api/v1/visits?technician=&from=&to=
func (h *Handler) List(c *gin.Context) {
	filter := repository.AgendaFilter{TechnicianSlug: c.Query("technician")}
	var ok bool
	if filter.From, ok = queryDate(c, "from"); !ok {
		return
	}
	if filter.To, ok = queryDate(c, "to"); !ok {
		return
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}

	visits, err := h.svc.ListAgenda(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := transport.AgendaResponse{Items: make([]transport.VisitResponse, 0, len(visits))}
	for _, v := range visits {
		resp.Items = append(resp.Items, transport.ToResponse(v))
	}
	httpkit.OK(c, resp)
}

// Get handles GET /api/v1/visits/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseVisitID(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToResponse(v))
}

// Create handles POST /api/v1/visits
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, gin.H{"field": validator.FirstField(err)})
		return
	}

	result, err := h.desk.BookVisit(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Update handles PUT /api/v1/visits/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseVisitID(c)
	if !ok {
		return
	}
	var req transport.UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, gin.H{"field": validator.FirstField(err)})
		return
	}

	result, err := h.desk.RescheduleVisit(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete handles DELETE /api/v1/visits/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseVisitID(c)
	if !ok {
		return
	}
	if err := h.desk.CancelVisit(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	d, err := clock.ParseDate(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidDate, gin.H{"field": key})
		return nil, false
	}
	return &d, true
}

func parseVisitID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidVisitID, nil)
		return 0, false
	}
	return id, true
}
