package repository

import (
	"context"
	"strings"
	"time"

	"hr_backoffice/internal/access"
	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Company struct {
	ID        int64
	TenantID  string
	ClienteID int64
	Name      string
	CreatedAt time.Time
}

type Department struct {
	ID        int64
	TenantID  string
	CompanyID int64
	Name      string
	CreatedAt time.Time
}

type CostCenter struct {
	ID        int64
	TenantID  string
	CompanyID int64
	Code      string
	Name      string
	CreatedAt time.Time
}

// SearchParams scopes a list query to a tenant and a set of companies.
type SearchParams struct {
	TenantID string
	Scope    access.ScopeFilter
	Search   string
	Limit    int
}

// Repository provides database operations for the organization structure.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new organization repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateCompany(ctx context.Context, c Company) (Company, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO companies (tenant_id, cliente_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		c.TenantID, c.ClienteID, c.Name,
	).Scan(&c.ID, &c.CreatedAt)
	return c, err
}

func (r *Repository) ListCompanies(ctx context.Context, p SearchParams) ([]Company, error) {
	if p.Scope.Empty() {
		return []Company{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, cliente_id, name, created_at
		FROM companies
		WHERE tenant_id = $1
		  AND ($2::boolean OR id = ANY($3::bigint[]))
		  AND ($4::text = '' OR name ILIKE '%' || $4 || '%')
		ORDER BY name, id
		LIMIT $5`,
		p.TenantID, p.Scope.All, p.Scope.CompanyIDs, strings.TrimSpace(p.Search), limit(p.Limit),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Company, error) {
		var c Company
		err := row.Scan(&c.ID, &c.TenantID, &c.ClienteID, &c.Name, &c.CreatedAt)
		return c, err
	})
}

func (r *Repository) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO departments (tenant_id, company_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		d.TenantID, d.CompanyID, d.Name,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return Department{}, translate(err, "department already exists in this company")
	}
	return d, nil
}

func (r *Repository) ListDepartments(ctx context.Context, p SearchParams) ([]Department, error) {
	if p.Scope.Empty() {
		return []Department{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, company_id, name, created_at
		FROM departments
		WHERE tenant_id = $1
		  AND ($2::boolean OR company_id = ANY($3::bigint[]))
		  AND ($4::text = '' OR name ILIKE '%' || $4 || '%')
		ORDER BY name, id
		LIMIT $5`,
		p.TenantID, p.Scope.All, p.Scope.CompanyIDs, strings.TrimSpace(p.Search), limit(p.Limit),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Department, error) {
		var d Department
		err := row.Scan(&d.ID, &d.TenantID, &d.CompanyID, &d.Name, &d.CreatedAt)
		return d, err
	})
}

func (r *Repository) CreateCostCenter(ctx context.Context, cc CostCenter) (CostCenter, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cost_centers (tenant_id, company_id, code, name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		cc.TenantID, cc.CompanyID, cc.Code, cc.Name,
	).Scan(&cc.ID, &cc.CreatedAt)
	if err != nil {
		return CostCenter{}, translate(err, "cost center code already exists in this company")
	}
	return cc, nil
}

func (r *Repository) ListCostCenters(ctx context.Context, p SearchParams) ([]CostCenter, error) {
	if p.Scope.Empty() {
		return []CostCenter{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, company_id, code, name, created_at
		FROM cost_centers
		WHERE tenant_id = $1
		  AND ($2::boolean OR company_id = ANY($3::bigint[]))
		  AND ($4::text = '' OR code ILIKE '%' || $4 || '%' OR name ILIKE '%' || $4 || '%')
		ORDER BY code, id
		LIMIT $5`,
		p.TenantID, p.Scope.All, p.Scope.CompanyIDs, strings.TrimSpace(p.Search), limit(p.Limit),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CostCenter, error) {
		var cc CostCenter
		err := row.Scan(&cc.ID, &cc.TenantID, &cc.CompanyID, &cc.Code, &cc.Name, &cc.CreatedAt)
		return cc, err
	})
}

func translate(err error, duplicateMsg string) error {
	switch {
	case db.IsUniqueViolation(err):
		return apperr.Conflict(duplicateMsg)
	case db.IsForeignKeyViolation(err):
		return apperr.Validation("company does not exist in the active tenant")
	default:
		return err
	}
}

func limit(n int) int {
	if n < 1 || n > 200 {
		return 50
	}
	return n
}
