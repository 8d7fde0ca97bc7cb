package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hr_backoffice/internal/people/domain"
	"hr_backoffice/platform/apperr"
)

// Memory is an in-process employee store with the same constraints as the
// postgres schema. It backs tests and single-process demos.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Employee
	now    func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[int64]domain.Employee), now: time.Now}
}

func (m *Memory) Create(_ context.Context, e domain.Employee) (domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.rows {
		if existing.TenantID == e.TenantID && existing.Email == e.Email {
			return domain.Employee{}, apperr.Conflict(duplicateEmailMsg)
		}
	}

	m.nextID++
	now := m.now().UTC()
	e.ID = m.nextID
	e.ExternalIdentityID = nil
	e.IdentityLinkedAt = nil
	e.CreatedAt = now
	e.UpdatedAt = now
	m.rows[e.ID] = e
	return e, nil
}

// Put stores e as-is, keeping its id. Tests use it to seed fixtures.
func (m *Memory) Put(e domain.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID > m.nextID {
		m.nextID = e.ID
	}
	m.rows[e.ID] = e
}

func (m *Memory) GetByID(_ context.Context, tenantID string, id int64) (domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[id]
	if !ok || e.TenantID != tenantID {
		return domain.Employee{}, apperr.NotFound(employeeNotFoundMsg)
	}
	return e, nil
}

func (m *Memory) List(_ context.Context, p ListParams) (ListResult, error) {
	page, pageSize := normalizePage(p.Page, p.PageSize)

	m.mu.Lock()
	matched := make([]domain.Employee, 0)
	search := strings.ToLower(strings.TrimSpace(p.Search))
	for _, e := range m.rows {
		if e.TenantID != p.TenantID || !p.Scope.Allows(e.CompanyID) {
			continue
		}
		if p.Status != "" && string(e.Status) != p.Status {
			continue
		}
		if p.DepartmentID != nil && (e.DepartmentID == nil || *e.DepartmentID != *p.DepartmentID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.FirstName+" "+e.LastName+" "+e.Email.String()), search) {
			continue
		}
		matched = append(matched, e)
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		if matched[i].FirstName != matched[j].FirstName {
			return matched[i].FirstName < matched[j].FirstName
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return ListResult{
		Items:      matched[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (m *Memory) LinkIdentity(_ context.Context, tenantID string, employeeID int64, identityID string, linkedAt time.Time) (LinkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[employeeID]
	if !ok || e.TenantID != tenantID {
		return LinkResult{}, apperr.NotFound(employeeNotFoundMsg)
	}
	if e.ExternalIdentityID != nil {
		current := *e.ExternalIdentityID
		return LinkResult{Applied: false, Current: &current}, nil
	}
	for id, other := range m.rows {
		if id != employeeID && other.TenantID == tenantID && other.ExternalIdentityID != nil && *other.ExternalIdentityID == identityID {
			return LinkResult{}, apperr.Conflict(identityBoundElseMsg).
				WithDetails(map[string]any{"employeeId": employeeID, "externalIdentityId": identityID})
		}
	}

	bound := identityID
	at := linkedAt.UTC()
	e.ExternalIdentityID = &bound
	e.IdentityLinkedAt = &at
	e.UpdatedAt = m.now().UTC()
	m.rows[employeeID] = e

	current := bound
	return LinkResult{Applied: true, Current: &current}, nil
}
