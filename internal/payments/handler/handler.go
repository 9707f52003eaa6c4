package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fm_servicios_backend/internal/payments/service"
	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/httpkit"
	"fm_servicios_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidQuoteID   = "invalid quote id"
)

// PayRequest lets staff charge an explicit amount instead of the quote total.
type PayRequest struct {
	Amount *int64 `json:"amount" validate:"omitempty,gt=0"`
}

// Handler handles the payment endpoints.
type Handler struct {
	svc *service.Service
	val *validator.Validator
	// resultURL is the frontend page the return endpoints redirect to.
	// Empty means the outcome is answered as JSON.
	resultURL string
}

// New creates a payments handler.
func New(svc *service.Service, val *validator.Validator, resultURL string) *Handler {
	return &Handler{svc: svc, val: val, resultURL: strings.TrimRight(resultURL, "/")}
}

// RegisterReturnRoutes mounts the unauthenticated gateway callbacks.
func (h *Handler) RegisterReturnRoutes(rg *gin.RouterGroup) {
	rg.GET("/webpay/return", h.WebpayReturn)
	rg.POST("/webpay/return", h.WebpayReturn)
	rg.GET("/mercadopago/return", h.MercadoPagoReturn)
}

// RegisterCustomerRoutes mounts POST /me/quotes/:id/pay.
func (h *Handler) RegisterCustomerRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/pay", h.CustomerPay)
}

// RegisterStaffRoutes mounts POST /quotes/:id/pay.
func (h *Handler) RegisterStaffRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/pay", h.StaffPay)
}

// CustomerPay handles POST /api/v1/me/quotes/:id/pay
func (h *Handler) CustomerPay(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	result, err := h.svc.CreateForCustomer(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// StaffPay handles POST /api/v1/quotes/:id/pay
func (h *Handler) StaffPay(c *gin.Context) {
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	var req PayRequest
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

	result, err := h.svc.CreateTransaction(c.Request.Context(), id, req.Amount)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// WebpayReturn handles GET|POST /api/v1/payments/webpay/return. Webpay
// posts the form on success and sends the TBK_* fields when the customer
// cancels.
func (h *Handler) WebpayReturn(c *gin.Context) {
	params := service.ReturnParams{
		TokenWS:        formOrQuery(c, "token_ws"),
		TBKOrdenCompra: formOrQuery(c, "TBK_ORDEN_COMPRA"),
		TBKToken:       formOrQuery(c, "TBK_TOKEN"),
	}
	out, err := h.svc.HandleReturn(c.Request.Context(), params)
	h.respond(c, out, err)
}

// MercadoPagoReturn handles GET /api/v1/payments/mercadopago/return
func (h *Handler) MercadoPagoReturn(c *gin.Context) {
	out, err := h.svc.HandleMercadoPagoReturn(c.Request.Context(), c.Query("payment_id"), c.Query("external_reference"))
	h.respond(c, out, err)
}

func (h *Handler) respond(c *gin.Context, out service.Outcome, err error) {
	if h.resultURL == "" {
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, out)
		return
	}

	q := url.Values{}
	switch {
	case err != nil:
		q.Set("pago", "error")
		if !apperr.Is(err, apperr.KindExternal) {
			_ = c.Error(err)
		}
	case out.Success:
		q.Set("pago", "ok")
	case out.Status == repository.GatewayAborted:
		q.Set("pago", "cancelado")
	default:
		q.Set("pago", "rechazado")
	}
	if out.QuoteID > 0 {
		q.Set("cotizacion", strconv.FormatInt(out.QuoteID, 10))
	}
	c.Redirect(http.StatusSeeOther, h.resultURL+"?"+q.Encode())
}

func formOrQuery(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}

func parseQuoteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidQuoteID, nil)
		return 0, false
	}
	return id, true
}
