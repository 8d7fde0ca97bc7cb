package access

import (
	"context"
	"slices"

	"hr_backoffice/platform/security"
)

// ScopeFilter constrains list and search queries to the companies a caller
// may see. Repositories must apply it in SQL; a zero value matches nothing.
type ScopeFilter struct {
	All        bool
	CompanyIDs []int64
}

// Empty reports whether the filter can match no row at all.
func (f ScopeFilter) Empty() bool {
	return !f.All && len(f.CompanyIDs) == 0
}

// Allows reports whether companyID passes the filter.
func (f ScopeFilter) Allows(companyID int64) bool {
	return f.All || slices.Contains(f.CompanyIDs, companyID)
}

// ScopeFor builds the filter of the caller in ctx.
func (v *Validator) ScopeFor(ctx context.Context) ScopeFilter {
	if v.IsAdmin(ctx) {
		return ScopeFilter{All: true}
	}
	return ScopeFilter{CompanyIDs: security.FromContext(ctx).AllowedEmpresaIDs()}
}

// Narrow validates an optional company requested by the caller and returns
// the filter for the query. Without a request the caller's full scope is used.
func (v *Validator) Narrow(ctx context.Context, requested *int64) (ScopeFilter, error) {
	if requested == nil {
		return v.ScopeFor(ctx), nil
	}
	if err := v.ValidateCompanyAccess(ctx, requested); err != nil {
		return ScopeFilter{}, err
	}
	return ScopeFilter{CompanyIDs: []int64{*requested}}, nil
}
