package handler

import (
	"net/http"
	"strconv"

	"fm_servicios_backend/internal/quotes/service"
	"fm_servicios_backend/internal/quotes/transport"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/httpkit"
	"fm_servicios_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidQuoteID   = "invalid quote id"

	customerRejectReason = "Rechazada por el cliente desde Mis cotizaciones"
)

// Handler handles HTTP requests for quotes
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new quotes handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPublicRoutes mounts the contact form.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/requests", h.CreateRequest)
}

// RegisterCustomerRoutes mounts the /me/quotes routes.
func (h *Handler) RegisterCustomerRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListMine)
	rg.GET("/:id", h.GetMine)
	rg.POST("/:id/accept", h.CustomerAccept)
	rg.POST("/:id/reject", h.CustomerReject)
}

// RegisterStaffRoutes mounts the staff quote desk.
func (h *Handler) RegisterStaffRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/send", h.Send)
	rg.POST("/:id/accept", h.StaffAccept)
	rg.POST("/:id/reject", h.StaffReject)
}

// RegisterTechnicianRoutes mounts the routes shared by staff and technicians.
func (h *Handler) RegisterTechnicianRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/informe", h.Informe)
}

// CreateRequest handles POST /api/v1/requests
func (h *Handler) CreateRequest(c *gin.Context) {
	var req transport.CreateRequestRequest
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

// List handles GET /api/v1/quotes
func (h *Handler) List(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}
	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get handles GET /api/v1/quotes/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Send handles POST /api/v1/quotes/:id/send
func (h *Handler) Send(c *gin.Context) {
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	var req transport.PriceAndSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FirstField(err))
		return
	}

	in := service.PriceAndSendInput{Price: req.Price, TechnicianSlug: req.Technician}
	if req.Date != "" {
		d, err := clock.ParseDate(req.Date)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "date")
			return
		}
		in.Date = &d
	}
	if req.Time != "" {
		t, err := clock.Parse(req.Time)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "time")
			return
		}
		in.Time = &t
	}

	result, err := h.svc.PriceAndSend(c.Request.Context(), id, in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// StaffAccept handles POST /api/v1/quotes/:id/accept
func (h *Handler) StaffAccept(c *gin.Context) {
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	var req transport.AcceptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FirstField(err))
		return
	}

	result, err := h.svc.StaffAccept(c.Request.Context(), id, req.Price)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// StaffReject handles POST /api/v1/quotes/:id/reject
func (h *Handler) StaffReject(c *gin.Context) {
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	req, ok := h.bindReject(c)
	if !ok {
		return
	}

	result, err := h.svc.StaffReject(c.Request.Context(), id, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Informe handles POST /api/v1/quotes/:id/informe
func (h *Handler) Informe(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	var req transport.InformeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FirstField(err))
		return
	}

	in := service.InformeInput{
		BasePrice: req.BasePrice,
		Labor:     toPricedItems(req.Labor),
		Materials: toPricedItems(req.Materials),
	}
	actor := service.Actor{UserID: identity.UserID(), Staff: identity.HasRole(httpkit.RoleAdmin)}

	result, err := h.svc.GenerateInforme(c.Request.Context(), id, actor, in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListMine handles GET /api/v1/me/quotes
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	req, ok := h.bindList(c)
	if !ok {
		return
	}
	result, err := h.svc.ListForCustomer(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetMine handles GET /api/v1/me/quotes/:id
func (h *Handler) GetMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	result, err := h.svc.GetForCustomer(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CustomerAccept handles POST /api/v1/me/quotes/:id/accept
func (h *Handler) CustomerAccept(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	result, err := h.svc.CustomerAccept(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CustomerReject handles POST /api/v1/me/quotes/:id/reject
func (h *Handler) CustomerReject(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	req, ok := h.bindReject(c)
	if !ok {
		return
	}
	if req.Reason == "" {
		req.Reason = customerRejectReason
	}

	result, err := h.svc.CustomerReject(c.Request.Context(), id, identity.UserID(), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bindList(c *gin.Context) (transport.ListQuotesRequest, bool) {
	var req transport.ListQuotesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FirstField(err))
		return req, false
	}
	return req, true
}

func (h *Handler) bindReject(c *gin.Context) (transport.RejectRequest, bool) {
	var req transport.RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return req, false
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FirstField(err))
		return req, false
	}
	return req, true
}

func toPricedItems(in []transport.PricedItemRequest) []service.PricedItem {
	out := make([]service.PricedItem, 0, len(in))
	for _, it := range in {
		out = append(out, service.PricedItem{Name: it.Name, Price: it.Price})
	}
	return out
}

func parseQuoteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidQuoteID, nil)
		return 0, false
	}
	return id, true
}
