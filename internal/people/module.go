// Package people provides the people bounded context module: employee
// records and the consumer side of identity reconciliation.
package people

import (
	"hr_backoffice/internal/access"
	"hr_backoffice/internal/events"
	apphttp "hr_backoffice/internal/http"
	"hr_backoffice/internal/people/handler"
	"hr_backoffice/internal/people/service"
	"hr_backoffice/platform/locker"
	"hr_backoffice/platform/logger"
	"hr_backoffice/platform/validator"
)

// Module is the people bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	listener *service.IdentityListener
}

// NewModule creates and initializes the people module with all its dependencies.
// The identity listener is subscribed to eventBus; a broker consumer may feed
// the same listener through Listener().
func NewModule(
	repo service.Repository,
	validatorSvc *access.Validator,
	eventBus events.Bus,
	locks locker.Locker,
	val *validator.Validator,
	log *logger.Logger,
	phoneRegion string,
) *Module {
	svc := service.New(repo, validatorSvc, eventBus, locks, log, phoneRegion)
	listener := service.NewIdentityListener(svc, log)
	eventBus.Subscribe(events.IdentityCreatedName, listener)

	return &Module{
		handler:  handler.New(svc, val),
		service:  svc,
		listener: listener,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "people"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Listener returns the identity reconciliation listener.
func (m *Module) Listener() *service.IdentityListener {
	return m.listener
}

// RegisterRoutes mounts employee routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/employees"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
