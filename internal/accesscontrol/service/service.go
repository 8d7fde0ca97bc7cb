package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hr_backoffice/internal/access"
	"hr_backoffice/internal/accesscontrol/keycloak"
	"hr_backoffice/internal/accesscontrol/outbox"
	"hr_backoffice/internal/accesscontrol/transport"
	"hr_backoffice/internal/events"
	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/locker"
	"hr_backoffice/platform/logger"
	"hr_backoffice/platform/tenancy"

	"github.com/google/uuid"
)

const (
	// MaxPublicationAttempts bounds republication before a row is marked failed.
	MaxPublicationAttempts = 8
	retryBaseDelay         = 30 * time.Second
	retryMaxDelay          = 30 * time.Minute
)

// Employee is the slice of an employee record provisioning needs.
type Employee struct {
	ID                 int64
	CompanyID          int64
	FirstName          string
	LastName           string
	Email              string
	ExternalIdentityID *string
}

// EmployeeDirectory resolves employees of the current tenant. Implementations
// return apperr.NotFound for unknown ids.
type EmployeeDirectory interface {
	LookupEmployee(ctx context.Context, employeeID int64) (Employee, error)
}

// IdentityProvider creates accounts in the external identity provider.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, p keycloak.Profile) (string, error)
}

// Outbox stores events whose first publication failed.
type Outbox interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError *string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// OperatorAlerter notifies operators about identities that were created but
// whose event could not be delivered.
type OperatorAlerter interface {
	PublicationFailed(ctx context.Context, evt events.IdentityCreated, cause error, final bool) error
}

// Service provisions identities and publishes the reconciliation event.
type Service struct {
	directory EmployeeDirectory
	idp       IdentityProvider
	publisher events.Publisher
	outbox    Outbox
	alerts    OperatorAlerter
	access    *access.Validator
	locks     locker.Locker
	log       *logger.Logger
	now       func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Directory EmployeeDirectory
	IdP       IdentityProvider
	Publisher events.Publisher
	Outbox    Outbox
	Alerts    OperatorAlerter
	Access    *access.Validator
	Locks     locker.Locker
	Log       *logger.Logger
}

func New(d Deps) *Service {
	if d.Locks == nil {
		d.Locks = locker.NewLocal()
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	return &Service{
		directory: d.Directory,
		idp:       d.IdP,
		publisher: d.Publisher,
		outbox:    d.Outbox,
		alerts:    d.Alerts,
		access:    d.Access,
		locks:     d.Locks,
		log:       d.Log,
		now:       time.Now,
	}
}

// ProvisionIdentity creates the employee's account in the identity provider
// and publishes exactly one IdentityCreated event for it. A failed publication
// does not fail provisioning: the event is kept in the outbox and the
// response reports it as pending.
func (s *Service) ProvisionIdentity(ctx context.Context, employeeID int64, req transport.ProvisionIdentityRequest) (transport.ProvisionIdentityResponse, error) {
	tenantID, ok := tenancy.TenantID(ctx)
	if !ok {
		return transport.ProvisionIdentityResponse{}, apperr.Internal("tenant context not established").WithOp("accesscontrol.ProvisionIdentity")
	}
	if employeeID <= 0 {
		return transport.ProvisionIdentityResponse{}, apperr.Validation("employee id must be positive")
	}

	unlock, err := s.locks.Lock(ctx, provisionLockKey(tenantID, employeeID))
	if err != nil {
		return transport.ProvisionIdentityResponse{}, apperr.Unavailable("provisioning lock", err)
	}
	defer unlock()

	emp, err := s.directory.LookupEmployee(ctx, employeeID)
	if err != nil {
		return transport.ProvisionIdentityResponse{}, err
	}
	companyID := emp.CompanyID
	if err := s.access.ValidateCompanyAccess(ctx, &companyID); err != nil {
		return transport.ProvisionIdentityResponse{}, err
	}
	if emp.ExternalIdentityID != nil {
		return transport.ProvisionIdentityResponse{}, apperr.Conflict("employee already has an identity").
			WithDetails(map[string]string{"externalIdentityId": *emp.ExternalIdentityID})
	}

	identityID, err := s.idp.CreateIdentity(ctx, profileFor(tenantID, emp, req))
	if err != nil {
		return transport.ProvisionIdentityResponse{}, err
	}
	s.log.WithContext(ctx).Info("identity provisioned", "employee_id", emp.ID, "external_identity_id", identityID)

	evt := events.NewIdentityCreated(tenantID, identityID, emp.ID, emp.Email)
	resp := transport.ProvisionIdentityResponse{
		EmployeeID:         emp.ID,
		ExternalIdentityID: identityID,
		EventID:            evt.EventID.String(),
	}

	if err := s.publisher.Publish(ctx, evt); err != nil {
		resp.PublicationPending = true
		resp.OutboxID = s.recordFailedPublication(ctx, evt, err)
	}
	return resp, nil
}

func (s *Service) recordFailedPublication(ctx context.Context, evt events.IdentityCreated, cause error) *string {
	log := s.log.WithContext(ctx)
	log.PublicationFailure(evt.EventName(), evt.EmployeeID, evt.ExternalIdentityID, cause)

	var outboxID *string
	if s.outbox != nil {
		msg := cause.Error()
		id, err := s.outbox.Insert(ctx, outbox.InsertParams{
			Event:     evt,
			RunAt:     s.now().UTC().Add(retryBaseDelay),
			LastError: &msg,
		})
		if err != nil {
			log.DatabaseError("insert identity publication outbox", err)
		} else {
			idStr := id.String()
			outboxID = &idStr
		}
	}

	if s.alerts != nil {
		if err := s.alerts.PublicationFailed(ctx, evt, cause, false); err != nil {
			log.Error("operator alert failed", "error", err)
		}
	}
	return outboxID
}

// RecordUndelivered stores an identity event that reached the transport but
// was never applied by its consumer, so the retry worker publishes it again.
func (s *Service) RecordUndelivered(ctx context.Context, evt events.IdentityCreated, cause error) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	if cause == nil {
		cause = errors.New("identity event not delivered")
	}
	return tenancy.Scope(ctx, evt.TenantID, func(ctx context.Context) error {
		if s.recordFailedPublication(ctx, evt, cause) == nil && s.outbox != nil {
			return errors.New("identity event not recorded in outbox")
		}
		return nil
	})
}

// RetryPublication republishes an outbox row. Exhausted rows are marked
// failed and reported to operators; settled rows are ignored.
func (s *Service) RetryPublication(ctx context.Context, outboxID uuid.UUID) error {
	if s.outbox == nil {
		return errors.New("publication outbox not configured")
	}

	rec, err := s.outbox.GetByID(ctx, outboxID)
	if err != nil {
		if errors.Is(err, outbox.ErrNotFound) {
			return nil
		}
		return err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		return nil
	}

	return tenancy.Scope(ctx, rec.Event.TenantID, func(ctx context.Context) error {
		log := s.log.WithContext(ctx)
		if err := s.outbox.MarkProcessing(ctx, rec.ID); err != nil {
			return err
		}
		attempts := rec.Attempts + 1

		pubErr := s.publisher.Publish(ctx, rec.Event)
		if pubErr == nil {
			log.Info("identity event republished", "outbox_id", rec.ID, "employee_id", rec.Event.EmployeeID, "attempts", attempts)
			return s.outbox.MarkSucceeded(ctx, rec.ID)
		}

		log.PublicationFailure(rec.Event.EventName(), rec.Event.EmployeeID, rec.Event.ExternalIdentityID, pubErr)
		if attempts >= MaxPublicationAttempts {
			if err := s.outbox.MarkFailed(ctx, rec.ID, pubErr.Error()); err != nil {
				return err
			}
			if s.alerts != nil {
				if err := s.alerts.PublicationFailed(ctx, rec.Event, pubErr, true); err != nil {
					log.Error("operator alert failed", "error", err)
				}
			}
			return nil
		}

		msg := pubErr.Error()
		return s.outbox.MarkPending(ctx, rec.ID, s.now().UTC().Add(RetryDelay(attempts)), &msg)
	})
}

// RetryDelay doubles from the base delay per attempt up to a ceiling.
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := retryBaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}

func profileFor(tenantID string, emp Employee, req transport.ProvisionIdentityRequest) keycloak.Profile {
	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if first == "" {
		first = emp.FirstName
	}
	if last == "" {
		last = emp.LastName
	}
	return keycloak.Profile{
		Username:  emp.Email,
		Email:     emp.Email,
		FirstName: first,
		LastName:  last,
		Enabled:   true,
		Attributes: map[string]string{
			"tenant_id":   tenantID,
			"employee_id": strconv.FormatInt(emp.ID, 10),
			"company_id":  strconv.FormatInt(emp.CompanyID, 10),
		},
	}
}

func provisionLockKey(tenantID string, employeeID int64) string {
	return fmt.Sprintf("accesscontrol:provision:%s:%d", tenantID, employeeID)
}
