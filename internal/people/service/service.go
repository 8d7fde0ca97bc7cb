package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hr_backoffice/internal/access"
	"hr_backoffice/internal/events"
	"hr_backoffice/internal/people/domain"
	"hr_backoffice/internal/people/repository"
	"hr_backoffice/internal/people/transport"
	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/locker"
	"hr_backoffice/platform/logger"
	"hr_backoffice/platform/sanitize"
	"hr_backoffice/platform/tenancy"
)

// Repository is the storage the service needs.
type Repository interface {
	Create(ctx context.Context, e domain.Employee) (domain.Employee, error)
	GetByID(ctx context.Context, tenantID string, id int64) (domain.Employee, error)
	List(ctx context.Context, p repository.ListParams) (repository.ListResult, error)
	LinkIdentity(ctx context.Context, tenantID string, employeeID int64, identityID string, linkedAt time.Time) (repository.LinkResult, error)
}

// Service provides business logic for employees.
type Service struct {
	repo        Repository
	access      *access.Validator
	eventBus    events.Publisher
	locks       locker.Locker
	log         *logger.Logger
	phoneRegion string
}

// New creates a new people service.
func New(repo Repository, validator *access.Validator, eventBus events.Publisher, locks locker.Locker, log *logger.Logger, phoneRegion string) *Service {
	if locks == nil {
		locks = locker.NewLocal()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		repo:        repo,
		access:      validator,
		eventBus:    eventBus,
		locks:       locks,
		log:         log,
		phoneRegion: phoneRegion,
	}
}

func (s *Service) Create(ctx context.Context, req transport.CreateEmployeeRequest) (transport.EmployeeResponse, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return transport.EmployeeResponse{}, err
	}
	if err := s.access.ValidateCompanyAccess(ctx, req.CompanyID); err != nil {
		return transport.EmployeeResponse{}, err
	}

	email, err := domain.NewEmail(req.Email)
	if err != nil {
		return transport.EmployeeResponse{}, err
	}
	phone, err := domain.NewPhone(req.Phone, s.phoneRegion)
	if err != nil {
		return transport.EmployeeResponse{}, err
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return transport.EmployeeResponse{}, err
	}

	created, err := s.repo.Create(ctx, domain.Employee{
		TenantID:     tenantID,
		CompanyID:    *req.CompanyID,
		DepartmentID: req.DepartmentID,
		FirstName:    sanitize.Text(req.FirstName),
		LastName:     sanitize.Text(req.LastName),
		Email:        email,
		Phone:        phone,
		Status:       status,
	})
	if err != nil {
		return transport.EmployeeResponse{}, err
	}

	if s.eventBus != nil {
		evt := events.EmployeeCreated{
			BaseEvent:  events.NewBaseEvent(),
			TenantID:   tenantID,
			EmployeeID: created.ID,
			CompanyID:  created.CompanyID,
			Email:      created.Email.String(),
		}
		if err := s.eventBus.Publish(ctx, evt); err != nil {
			s.log.WithContext(ctx).Warn("employee created event not published", "employee_id", created.ID, "error", err)
		}
	}

	return mapEmployee(created), nil
}

// Get returns an employee of the current tenant. An employee outside the
// caller's companies is reported as forbidden, not as missing.
func (s *Service) Get(ctx context.Context, id int64) (transport.EmployeeResponse, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return transport.EmployeeResponse{}, err
	}

	e, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return transport.EmployeeResponse{}, err
	}
	if err := s.access.ValidateCompanyAccess(ctx, &e.CompanyID); err != nil {
		return transport.EmployeeResponse{}, err
	}
	return mapEmployee(e), nil
}

func (s *Service) List(ctx context.Context, req transport.ListEmployeesRequest) (transport.EmployeeListResponse, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return transport.EmployeeListResponse{}, err
	}

	scope, err := s.access.Narrow(ctx, req.CompanyID)
	if err != nil {
		return transport.EmployeeListResponse{}, err
	}

	result, err := s.repo.List(ctx, repository.ListParams{
		TenantID:     tenantID,
		Scope:        scope,
		Search:       req.Search,
		Status:       req.Status,
		DepartmentID: req.DepartmentID,
		Page:         req.Page,
		PageSize:     req.PageSize,
	})
	if err != nil {
		return transport.EmployeeListResponse{}, err
	}

	items := make([]transport.EmployeeResponse, 0, len(result.Items))
	for _, e := range result.Items {
		items = append(items, mapEmployee(e))
	}
	return transport.EmployeeListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// ApplyIdentityCreated runs the link state machine for one event. Transitions
// for the same employee are serialized by a keyed lock, and the store applies
// the link only while the employee is unlinked.
func (s *Service) ApplyIdentityCreated(ctx context.Context, evt events.IdentityCreated) (domain.LinkOutcome, error) {
	if err := evt.Validate(); err != nil {
		return 0, err
	}
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return 0, err
	}
	if tenantID != evt.TenantID {
		return 0, apperr.Validation("event tenant does not match active tenant")
	}

	unlock, err := s.locks.Lock(ctx, linkLockKey(tenantID, evt.EmployeeID))
	if err != nil {
		return 0, fmt.Errorf("lock employee %d: %w", evt.EmployeeID, err)
	}
	defer unlock()

	res, err := s.repo.LinkIdentity(ctx, tenantID, evt.EmployeeID, evt.ExternalIdentityID, evt.OccurredAt())
	if err != nil {
		return 0, err
	}

	outcome := domain.LinkApplied
	if !res.Applied {
		if res.Current == nil {
			return 0, fmt.Errorf("link employee %d: store refused an unlinked employee", evt.EmployeeID)
		}
		outcome = domain.DecideLink(res.Current, evt.ExternalIdentityID)
	}
	log := s.log.WithContext(ctx)
	log.ReconciliationEvent(outcome.String(), evt.EmployeeID, evt.ExternalIdentityID)

	if outcome != domain.LinkConflict {
		return outcome, nil
	}

	linked := ""
	if res.Current != nil {
		linked = *res.Current
	}
	conflict := events.IdentityLinkConflict{
		BaseEvent:          events.NewBaseEvent(),
		TenantID:           tenantID,
		EmployeeID:         evt.EmployeeID,
		LinkedIdentityID:   linked,
		IncomingIdentityID: evt.ExternalIdentityID,
		SourceEventID:      evt.EventID,
		DetectedAt:         time.Now().UTC(),
	}
	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, conflict); err != nil {
			log.Error("identity link conflict not reported", "employee_id", evt.EmployeeID, "error", err)
		}
	}

	return outcome, apperr.Conflict("employee already linked to a different identity").
		WithDetails(map[string]any{
			"employeeId":         evt.EmployeeID,
			"linkedIdentityId":   linked,
			"incomingIdentityId": evt.ExternalIdentityID,
		})
}

func linkLockKey(tenantID string, employeeID int64) string {
	return fmt.Sprintf("people:identity-link:%s:%d", tenantID, employeeID)
}

func requireTenant(ctx context.Context) (string, error) {
	tenantID, ok := tenancy.TenantID(ctx)
	if !ok || strings.TrimSpace(tenantID) == "" {
		return "", apperr.Internal("tenant context not established")
	}
	return tenantID, nil
}

func mapEmployee(e domain.Employee) transport.EmployeeResponse {
	return transport.EmployeeResponse{
		ID:                 e.ID,
		CompanyID:          e.CompanyID,
		DepartmentID:       e.DepartmentID,
		FirstName:          e.FirstName,
		LastName:           e.LastName,
		Email:              e.Email.String(),
		Phone:              e.Phone.String(),
		Status:             string(e.Status),
		ExternalIdentityID: e.ExternalIdentityID,
		IdentityLinkedAt:   e.IdentityLinkedAt,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}
