// Package technicians manages field technicians and their assignment to
// services.
package technicians

import (
	apphttp "fm_servicios_backend/internal/http"
	"fm_servicios_backend/internal/technicians/handler"
	"fm_servicios_backend/internal/technicians/repository"
	"fm_servicios_backend/internal/technicians/service"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the technicians bounded context.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "technicians"
}

// Service exposes the roster to the scheduling and quotes modules.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Staff.Group("/technicians"))
}

var _ apphttp.Module = (*Module)(nil)
