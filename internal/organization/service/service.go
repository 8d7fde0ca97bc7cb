package service

import (
	"context"
	"strings"

	"hr_backoffice/internal/access"
	"hr_backoffice/internal/organization/repository"
	"hr_backoffice/internal/organization/transport"
	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/sanitize"
	"hr_backoffice/platform/tenancy"
)

// Repository is the storage the service needs.
type Repository interface {
	CreateCompany(ctx context.Context, c repository.Company) (repository.Company, error)
	ListCompanies(ctx context.Context, p repository.SearchParams) ([]repository.Company, error)
	CreateDepartment(ctx context.Context, d repository.Department) (repository.Department, error)
	ListDepartments(ctx context.Context, p repository.SearchParams) ([]repository.Department, error)
	CreateCostCenter(ctx context.Context, cc repository.CostCenter) (repository.CostCenter, error)
	ListCostCenters(ctx context.Context, p repository.SearchParams) ([]repository.CostCenter, error)
}

// Service provides business logic for companies, departments and cost centers.
type Service struct {
	repo   Repository
	access *access.Validator
}

// New creates a new organization service.
func New(repo Repository, validator *access.Validator) *Service {
	return &Service{repo: repo, access: validator}
}

// CreateCompany is reserved for global admins; the route enforces it and the
// service checks again.
func (s *Service) CreateCompany(ctx context.Context, req transport.CreateCompanyRequest) (transport.CompanyResponse, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return transport.CompanyResponse{}, err
	}
	if !s.access.IsAdmin(ctx) {
		return transport.CompanyResponse{}, apperr.Forbidden("only global admins can create companies")
	}

	c, err := s.repo.CreateCompany(ctx, repository.Company{
		TenantID:  tenantID,
		ClienteID: req.ClienteID,
		Name:      sanitize.Text(req.Name),
	})
	if err != nil {
		return transport.CompanyResponse{}, err
	}
	return transport.CompanyResponse{ID: c.ID, ClienteID: c.ClienteID, Name: c.Name, CreatedAt: c.CreatedAt}, nil
}

func (s *Service) ListCompanies(ctx context.Context, req transport.SearchRequest) ([]transport.CompanyResponse, error) {
	params, err := s.searchParams(ctx, req)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListCompanies(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]transport.CompanyResponse, 0, len(items))
	for _, c := range items {
		out = append(out, transport.CompanyResponse{ID: c.ID, ClienteID: c.ClienteID, Name: c.Name, CreatedAt: c.CreatedAt})
	}
	return out, nil
}

func (s *Service) CreateDepartment(ctx context.Context, req transport.CreateDepartmentRequest) (transport.DepartmentResponse, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return transport.DepartmentResponse{}, err
	}
	if err := s.access.ValidateCompanyAccess(ctx, req.CompanyID); err != nil {
		return transport.DepartmentResponse{}, err
	}

	d, err := s.repo.CreateDepartment(ctx, repository.Department{
		TenantID:  tenantID,
		CompanyID: *req.CompanyID,
		Name:      sanitize.Text(req.Name),
	})
	if err != nil {
		return transport.DepartmentResponse{}, err
	}
	return mapDepartment(d), nil
}

func (s *Service) ListDepartments(ctx context.Context, req transport.SearchRequest) ([]transport.DepartmentResponse, error) {
	params, err := s.searchParams(ctx, req)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListDepartments(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]transport.DepartmentResponse, 0, len(items))
	for _, d := range items {
		out = append(out, mapDepartment(d))
	}
	return out, nil
}

func (s *Service) CreateCostCenter(ctx context.Context, req transport.CreateCostCenterRequest) (transport.CostCenterResponse, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return transport.CostCenterResponse{}, err
	}
	if err := s.access.ValidateCompanyAccess(ctx, req.CompanyID); err != nil {
		return transport.CostCenterResponse{}, err
	}

	cc, err := s.repo.CreateCostCenter(ctx, repository.CostCenter{
		TenantID:  tenantID,
		CompanyID: *req.CompanyID,
		Code:      sanitize.Code(req.Code),
		Name:      sanitize.Text(req.Name),
	})
	if err != nil {
		return transport.CostCenterResponse{}, err
	}
	return mapCostCenter(cc), nil
}

func (s *Service) ListCostCenters(ctx context.Context, req transport.SearchRequest) ([]transport.CostCenterResponse, error) {
	params, err := s.searchParams(ctx, req)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListCostCenters(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]transport.CostCenterResponse, 0, len(items))
	for _, cc := range items {
		out = append(out, mapCostCenter(cc))
	}
	return out, nil
}

// searchParams validates the requested company (if any) before any query
// runs and hands the narrowed scope to the repository.
func (s *Service) searchParams(ctx context.Context, req transport.SearchRequest) (repository.SearchParams, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return repository.SearchParams{}, err
	}
	scope, err := s.access.Narrow(ctx, req.CompanyID)
	if err != nil {
		return repository.SearchParams{}, err
	}
	return repository.SearchParams{TenantID: tenantID, Scope: scope, Search: req.Search, Limit: req.Limit}, nil
}

func requireTenant(ctx context.Context) (string, error) {
	tenantID, ok := tenancy.TenantID(ctx)
	if !ok || strings.TrimSpace(tenantID) == "" {
		return "", apperr.Internal("tenant context not established")
	}
	return tenantID, nil
}

func mapDepartment(d repository.Department) transport.DepartmentResponse {
	return transport.DepartmentResponse{ID: d.ID, CompanyID: d.CompanyID, Name: d.Name, CreatedAt: d.CreatedAt}
}

func mapCostCenter(cc repository.CostCenter) transport.CostCenterResponse {
	return transport.CostCenterResponse{ID: cc.ID, CompanyID: cc.CompanyID, Code: cc.Code, Name: cc.Name, CreatedAt: cc.CreatedAt}
}
