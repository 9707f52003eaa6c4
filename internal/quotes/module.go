// Package quotes provides the quote lifecycle module: contact requests,
// pricing, acceptance and the technical report that opens payment.
package quotes

import (
	apphttp "fm_servicios_backend/internal/http"
	"fm_servicios_backend/internal/locations"
	"fm_servicios_backend/internal/quotes/handler"
	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/internal/quotes/service"
	"fm_servicios_backend/platform/db"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the collaborators owned by other modules.
type Deps struct {
	Customers   service.Customers
	Technicians service.Technicians
	Visits      service.Scheduler
	Catalog     locations.Catalog
}

// Module represents the quotes domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates a new quotes module with all dependencies wired
func NewModule(pool *pgxpool.Pool, tx db.Transactor, deps Deps, policy service.Policy, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tx, deps.Customers, deps.Technicians, deps.Visits, deps.Catalog, policy, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes quote storage to the payments module, which owns the
// gateway columns.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.PublicForms)
	m.handler.RegisterCustomerRoutes(ctx.Customer.Group("/quotes"))
	m.handler.RegisterStaffRoutes(ctx.Staff.Group("/quotes"))
	m.handler.RegisterTechnicianRoutes(ctx.Technician.Group("/quotes"))
}

var _ apphttp.Module = (*Module)(nil)
