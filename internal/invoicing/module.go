package invoicing

import (
	apphttp "fm_servicios_backend/internal/http"
)

// Module wires the invoice routes.
type Module struct {
	service *Service
	handler *Handler
}

func NewModule(svc *Service) *Module {
	return &Module{service: svc, handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "invoicing"
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	quotes := ctx.Staff.Group("/quotes")
	quotes.GET("/:id/breakdown", m.handler.GetBreakdown)
	quotes.POST("/:id/invoice", m.handler.Issue)
}

var _ apphttp.Module = (*Module)(nil)
