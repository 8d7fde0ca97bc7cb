// Package accesscontrol provisions employee identities in the external
// identity provider and announces them to the rest of the system.
package accesscontrol

import (
	"hr_backoffice/internal/accesscontrol/handler"
	"hr_backoffice/internal/accesscontrol/service"
	apphttp "hr_backoffice/internal/http"
	"hr_backoffice/platform/validator"

	"github.com/gin-gonic/gin"
)

// Module is the access-control bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the access-control module.
func NewModule(deps service.Deps, val *validator.Validator) *Module {
	svc := service.New(deps)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "accesscontrol"
}

// Service returns the service layer; the scheduler worker drives
// RetryPublication through it.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts provisioning routes behind the provisioning limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var middleware []gin.HandlerFunc
	if ctx.ProvisioningRateLimiter != nil {
		middleware = append(middleware, ctx.ProvisioningRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(ctx.Protected, middleware...)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
