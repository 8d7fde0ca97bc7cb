// Package organization provides companies, departments and cost centers.
package organization

import (
	"hr_backoffice/internal/access"
	apphttp "hr_backoffice/internal/http"
	"hr_backoffice/internal/organization/handler"
	"hr_backoffice/internal/organization/service"
	"hr_backoffice/platform/validator"
)

// Module is the organization bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the organization module.
func NewModule(repo service.Repository, validatorSvc *access.Validator, val *validator.Validator) *Module {
	svc := service.New(repo, validatorSvc)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "organization"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts organization routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
