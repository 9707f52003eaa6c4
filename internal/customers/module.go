// Package customers provides customer identity lookup and provisioning.
// It has no HTTP surface; accounts are managed by the identity provider.
package customers

import (
	"fm_servicios_backend/internal/customers/repository"
	"fm_servicios_backend/internal/customers/service"
	"fm_servicios_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the customers domain module.
type Module struct {
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return &Module{service: service.New(repository.New(pool), log)}
}

func (m *Module) Service() *service.Service {
	return m.service
}
