package adapters

import (
	"hr_backoffice/internal/accesscontrol/keycloak"
	"hr_backoffice/internal/accesscontrol/outbox"
	acservice "hr_backoffice/internal/accesscontrol/service"
	"hr_backoffice/internal/notification"
	orgrepo "hr_backoffice/internal/organization/repository"
	orgservice "hr_backoffice/internal/organization/service"
	peoplerepo "hr_backoffice/internal/people/repository"
	peopleservice "hr_backoffice/internal/people/service"
	"hr_backoffice/internal/scheduler"
)

// Compile-time checks that the concrete infrastructure satisfies the ports
// the composition roots wire it into.
var (
	_ acservice.IdentityProvider   = (*keycloak.Client)(nil)
	_ acservice.Outbox             = (*outbox.Repository)(nil)
	_ acservice.OperatorAlerter    = (*notification.OperatorAlerts)(nil)
	_ scheduler.PendingOutbox      = (*outbox.Repository)(nil)
	_ scheduler.RetryEnqueuer      = (*scheduler.Client)(nil)
	_ scheduler.PublicationRetrier = (*acservice.Service)(nil)
	_ peopleservice.Repository     = (*peoplerepo.Repository)(nil)
	_ peopleservice.Repository     = (*peoplerepo.Memory)(nil)
	_ orgservice.Repository        = (*orgrepo.Repository)(nil)
	_ UndeliveredRecorder          = (*acservice.Service)(nil)
)
