package service

import (
	"context"
	"testing"

	"hr_backoffice/internal/access"
	"hr_backoffice/internal/organization/repository"
	"hr_backoffice/internal/organization/transport"
	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/security"
	"hr_backoffice/platform/tenancy"
)

type fakeRepo struct {
	departments []repository.Department
	lastSearch  repository.SearchParams
	searched    bool
}

func (f *fakeRepo) CreateCompany(_ context.Context, c repository.Company) (repository.Company, error) {
	c.ID = 1
	return c, nil
}

func (f *fakeRepo) ListCompanies(_ context.Context, p repository.SearchParams) ([]repository.Company, error) {
	f.lastSearch, f.searched = p, true
	return nil, nil
}

func (f *fakeRepo) CreateDepartment(_ context.Context, d repository.Department) (repository.Department, error) {
	d.ID = int64(len(f.departments) + 1)
	f.departments = append(f.departments, d)
	return d, nil
}

func (f *fakeRepo) ListDepartments(_ context.Context, p repository.SearchParams) ([]repository.Department, error) {
	f.lastSearch, f.searched = p, true
	return f.departments, nil
}

func (f *fakeRepo) CreateCostCenter(_ context.Context, cc repository.CostCenter) (repository.CostCenter, error) {
	cc.ID = 1
	return cc, nil
}

func (f *fakeRepo) ListCostCenters(_ context.Context, p repository.SearchParams) ([]repository.CostCenter, error) {
	f.lastSearch, f.searched = p, true
	return nil, nil
}

func ctxFor(p security.Principal) context.Context {
	h := tenancy.NewHolder()
	h.Set("acme")
	return security.WithContext(tenancy.WithHolder(context.Background(), h), p)
}

func ptr(v int64) *int64 { return &v }

func TestCreateDepartmentChecksCompanyScope(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, access.NewValidator(nil))
	ctx := ctxFor(security.Principal{Username: "ana", EmpresaIDs: []int64{5}})

	d, err := svc.CreateDepartment(ctx, transport.CreateDepartmentRequest{CompanyID: ptr(5), Name: " <b>Finance</b> "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Name != "Finance" || repo.departments[0].TenantID != "acme" {
		t.Fatalf("expected sanitized tenant-scoped department, got %+v", repo.departments[0])
	}

	if _, err := svc.CreateDepartment(ctx, transport.CreateDepartmentRequest{CompanyID: ptr(15), Name: "Ops"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.CreateDepartment(ctx, transport.CreateDepartmentRequest{Name: "Ops"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchRejectsOutOfScopeBeforeQuerying(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, access.NewValidator(nil))
	ctx := ctxFor(security.Principal{EmpresaIDs: []int64{5}})

	if _, err := svc.ListCostCenters(ctx, transport.SearchRequest{CompanyID: ptr(15)}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if repo.searched {
		t.Fatal("repository must not be queried for an out-of-scope company")
	}

	if _, err := svc.ListDepartments(ctx, transport.SearchRequest{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastSearch.Scope.All || !repo.lastSearch.Scope.Allows(5) || repo.lastSearch.Scope.Allows(15) {
		t.Fatalf("query must be constrained to the caller's companies, got %+v", repo.lastSearch.Scope)
	}
}

func TestCreateCompanyRequiresAdmin(t *testing.T) {
	svc := New(&fakeRepo{}, access.NewValidator(nil))

	req := transport.CreateCompanyRequest{ClienteID: 1, Name: "Acme Ltda"}
	if _, err := svc.CreateCompany(ctxFor(security.Principal{EmpresaIDs: []int64{5}}), req); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.CreateCompany(ctxFor(security.Principal{GlobalAdmin: true}), req); err != nil {
		t.Fatalf("admin create: %v", err)
	}
}

func TestCostCenterCodeIsNormalized(t *testing.T) {
	svc := New(&fakeRepo{}, access.NewValidator(nil))
	cc, err := svc.CreateCostCenter(ctxFor(security.Principal{GlobalAdmin: true}), transport.CreateCostCenterRequest{CompanyID: ptr(15), Code: " cc-01 ", Name: "Ops"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cc.Code != "CC-01" {
		t.Fatalf("expected CC-01, got %q", cc.Code)
	}
}
