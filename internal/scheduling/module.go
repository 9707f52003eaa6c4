// Package scheduling provides the technician agenda: booking, moving and
// cancelling visits without double-booking a technician.
package scheduling

import (
	"time"

	"fm_servicios_backend/internal/events"
	apphttp "fm_servicios_backend/internal/http"
	"fm_servicios_backend/internal/scheduling/handler"
	"fm_servicios_backend/internal/scheduling/repository"
	"fm_servicios_backend/internal/scheduling/service"
	"fm_servicios_backend/platform/db"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the scheduling bounded context.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, tx db.Transactor, bus events.Bus, window time.Duration, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), tx, bus, window, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "scheduling"
}

func (m *Module) Service() *service.Service {
	return m.service
}

// SetDesk routes agenda writes through the quote lifecycle guard.
func (m *Module) SetDesk(desk handler.VisitDesk) {
	m.handler.SetDesk(desk)
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Staff.Group("/visits"))
}

var _ apphttp.Module = (*Module)(nil)
