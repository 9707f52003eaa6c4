// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"fm_servicios_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the groups in ctx.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared route groups for module registration.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is the /api/v1 group without authentication.
	V1 *gin.RouterGroup
	// PublicForms is V1 behind the per-IP form rate limiter.
	PublicForms *gin.RouterGroup
	// Protected requires any valid access token.
	Protected *gin.RouterGroup
	// Customer requires the CLIENTE role and is mounted at /api/v1/me.
	Customer *gin.RouterGroup
	// Staff requires the ADMIN role.
	Staff *gin.RouterGroup
	// Technician admits ADMIN and TECNICO.
	Technician *gin.RouterGroup
	Config     config.JWTConfig
}
