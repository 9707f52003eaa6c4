package handler

import (
	"net/http"

	"fm_servicios_backend/internal/technicians/service"
	"fm_servicios_backend/internal/technicians/transport"
	"fm_servicios_backend/platform/httpkit"
	"fm_servicios_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles staff requests for the technician roster.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:slug", h.Get)
	rg.PATCH("/:slug/active", h.SetActive)
}

// List handles GET /api/v1/technicians?active=true
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), c.Query("active") == "true")
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create handles POST /api/v1/technicians
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FirstField(err))
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Get handles GET /api/v1/technicians/:slug
func (h *Handler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("slug"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetActive handles PATCH /api/v1/technicians/:slug/active
func (h *Handler) SetActive(c *gin.Context) {
	var req transport.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.svc.SetActive(c.Request.Context(), c.Param("slug"), *req.Active); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
