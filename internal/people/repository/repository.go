package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"hr_backoffice/internal/access"
	"hr_backoffice/internal/people/domain"
	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	employeeNotFoundMsg   = "employee not found"
	identityBoundElseMsg  = "external identity already bound to another employee"
	duplicateEmailMsg     = "an employee with this email already exists"
	unknownCompanyDeptMsg = "company or department does not exist"
	foreignCompanyMsg     = "company does not belong to the active tenant"
	foreignDepartmentMsg  = "department does not belong to the employee's company"
)

type ListParams struct {
	TenantID     string
	Scope        access.ScopeFilter
	Search       string
	Status       string
	DepartmentID *int64
	Page         int
	PageSize     int
}

type ListResult struct {
	Items      []domain.Employee
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// LinkResult reports the stored binding after a link attempt. Applied is true
// only when this call moved the employee from unlinked to linked.
type LinkResult struct {
	Applied bool
	Current *string
}

// Repository provides database operations for employees.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new employees repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const employeeColumns = `id, tenant_id, company_id, department_id, first_name, last_name, email,
	COALESCE(phone, ''), status, external_identity_id, identity_linked_at, created_at, updated_at`

func scanEmployee(row pgx.Row) (domain.Employee, error) {
	var e domain.Employee
	var email, phone, status string
	err := row.Scan(&e.ID, &e.TenantID, &e.CompanyID, &e.DepartmentID, &e.FirstName, &e.LastName, &email,
		&phone, &status, &e.ExternalIdentityID, &e.IdentityLinkedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return domain.Employee{}, err
	}
	e.Email = domain.Email(email)
	e.Phone = domain.Phone(phone)
	e.Status = domain.Status(status)
	return e, nil
}

func (r *Repository) Create(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	query := `
		INSERT INTO employees (tenant_id, company_id, department_id, first_name, last_name, email, phone, status)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		RETURNING ` + employeeColumns

	created, err := scanEmployee(r.pool.QueryRow(ctx, query,
		e.TenantID, e.CompanyID, e.DepartmentID, e.FirstName, e.LastName,
		e.Email.String(), e.Phone.String(), string(e.Status),
	))
	if err != nil {
		return domain.Employee{}, translateCreate(err)
	}
	return created, nil
}

// translateCreate maps insert constraint violations. Company and department
// references are keyed by tenant, so a row pointing at another tenant's
// company fails the same way as a missing one.
func translateCreate(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return apperr.Conflict(duplicateEmailMsg)
	case db.IsForeignKeyViolation(err):
		switch db.ConstraintName(err) {
		case "employees_company_fk":
			return apperr.Validation(foreignCompanyMsg)
		case "employees_department_fk":
			return apperr.Validation(foreignDepartmentMsg)
		}
		return apperr.Validation(unknownCompanyDeptMsg)
	default:
		return err
	}
}

func (r *Repository) GetByID(ctx context.Context, tenantID string, id int64) (domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE tenant_id = $1 AND id = $2`

	e, err := scanEmployee(r.pool.QueryRow(ctx, query, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Employee{}, apperr.NotFound(employeeNotFoundMsg)
	}
	return e, err
}

func (r *Repository) List(ctx context.Context, p ListParams) (ListResult, error) {
	page, pageSize := normalizePage(p.Page, p.PageSize)
	if p.Scope.Empty() {
		return ListResult{Items: []domain.Employee{}, Page: page, PageSize: pageSize}, nil
	}

	query := `
		SELECT ` + employeeColumns + `, count(*) OVER()
		FROM employees
		WHERE tenant_id = $1
		  AND ($2::boolean OR company_id = ANY($3::bigint[]))
		  AND ($4::text = '' OR first_name ILIKE '%' || $4 || '%' OR last_name ILIKE '%' || $4 || '%' OR email ILIKE '%' || $4 || '%')
		  AND ($5::text = '' OR status = $5)
		  AND ($6::bigint IS NULL OR department_id = $6)
		ORDER BY last_name, first_name, id
		LIMIT $7 OFFSET $8`

	rows, err := r.pool.Query(ctx, query,
		p.TenantID, p.Scope.All, p.Scope.CompanyIDs,
		strings.TrimSpace(p.Search), p.Status, p.DepartmentID,
		pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Employee, 0)
	total := 0
	for rows.Next() {
		var e domain.Employee
		var email, phone, status string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.CompanyID, &e.DepartmentID, &e.FirstName, &e.LastName, &email,
			&phone, &status, &e.ExternalIdentityID, &e.IdentityLinkedAt, &e.CreatedAt, &e.UpdatedAt, &total); err != nil {
			return ListResult{}, err
		}
		e.Email = domain.Email(email)
		e.Phone = domain.Phone(phone)
		e.Status = domain.Status(status)
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}

	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages(total, pageSize)}, nil
}

// LinkIdentity binds identityID only while the employee is unlinked. The
// conditional update is the compare-and-set; when it matches nothing the
// current binding is read back for the caller to decide.
func (r *Repository) LinkIdentity(ctx context.Context, tenantID string, employeeID int64, identityID string, linkedAt time.Time) (LinkResult, error) {
	var current *string
	err := r.pool.QueryRow(ctx, `
		UPDATE employees
		SET external_identity_id = $3, identity_linked_at = $4, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND external_identity_id IS NULL
		RETURNING external_identity_id`,
		tenantID, employeeID, identityID, linkedAt,
	).Scan(&current)
	switch {
	case err == nil:
		return LinkResult{Applied: true, Current: current}, nil
	case db.IsUniqueViolation(err):
		return LinkResult{}, apperr.Conflict(identityBoundElseMsg).
			WithDetails(map[string]any{"employeeId": employeeID, "externalIdentityId": identityID})
	case !errors.Is(err, pgx.ErrNoRows):
		return LinkResult{}, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT external_identity_id FROM employees WHERE tenant_id = $1 AND id = $2`,
		tenantID, employeeID,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return LinkResult{}, apperr.NotFound(employeeNotFoundMsg)
	}
	if err != nil {
		return LinkResult{}, err
	}
	return LinkResult{Applied: false, Current: current}, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func totalPages(total, pageSize int) int {
	if total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
