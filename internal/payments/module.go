// Package payments wires the card payment flow: gateway selection, the
// optional audit journal and the return endpoints.
package payments

import (
	"context"
	"fmt"

	apphttp "fm_servicios_backend/internal/http"
	"fm_servicios_backend/internal/payments/audit"
	"fm_servicios_backend/internal/payments/gateway"
	"fm_servicios_backend/internal/payments/handler"
	"fm_servicios_backend/internal/payments/service"
	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/platform/config"
	"fm_servicios_backend/platform/db"
	"fm_servicios_backend/platform/events"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/validator"
)

// Config is what the payments module reads from the environment.
type Config interface {
	config.PaymentConfig
	config.NotificationConfig
	config.AuditConfig
	config.QuotePolicyConfig
}

// Module represents the payments module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule selects the gateway and builds the payments service.
func NewModule(ctx context.Context, cfg Config, repo repository.Repository, tx db.Transactor, bus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	gw, returnURL, err := gateway.Select(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	journal, err := audit.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("payment audit: %w", err)
	}

	svc := service.New(repo, tx, gw, journal, bus, service.Options{
		ReturnURL:  returnURL,
		Timeout:    cfg.GetPaymentGatewayTimeout(),
		FixedPrice: cfg.GetFixedPrice(),
	}, log)
	log.Info("payments module ready", "provider", gw.Name(), "returnUrl", returnURL)

	return &Module{
		handler: handler.New(svc, val, cfg.GetPaymentResultURL()),
		service: svc,
	}, nil
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "payments"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterReturnRoutes(ctx.V1.Group("/payments"))
	m.handler.RegisterCustomerRoutes(ctx.Customer.Group("/quotes"))
	m.handler.RegisterStaffRoutes(ctx.Staff.Group("/quotes"))
}

var _ apphttp.Module = (*Module)(nil)
