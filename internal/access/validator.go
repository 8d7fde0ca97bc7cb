// Package access decides whether the current principal may act on a company
// scope. It is the only place allowed to bypass a scope check for global
// admins.
package access

import (
	"context"

	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/logger"
	"hr_backoffice/platform/security"
)

// Validator is stateless; every call reads the security context of ctx.
type Validator struct {
	log *logger.Logger
}

// NewValidator creates a validator. log may be nil.
func NewValidator(log *logger.Logger) *Validator {
	if log == nil {
		log = logger.Discard()
	}
	return &Validator{log: log}
}

// ValidateCompanyAccess accepts target when the caller is a global admin or
// target is in the caller's allowed companies. A nil target is invalid input,
// not a denial.
func (v *Validator) ValidateCompanyAccess(ctx context.Context, target *int64) error {
	if target == nil {
		return apperr.Validation("company id is required")
	}

	sc := security.FromContext(ctx)
	if sc.IsGlobalAdmin() {
		return nil
	}
	if sc.CanAccessEmpresa(*target) {
		return nil
	}

	v.log.WithContext(ctx).AccessDenied(sc.CurrentUsername(), *target)
	return apperr.Forbidden("access to company denied").
		WithDetails(map[string]int64{"companyId": *target})
}

// UserCompanyID returns the caller's company when the caller has exactly one.
func (v *Validator) UserCompanyID(ctx context.Context) (int64, bool) {
	ids := security.FromContext(ctx).AllowedEmpresaIDs()
	if len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}

// IsAdmin reports whether the caller is a global admin.
func (v *Validator) IsAdmin(ctx context.Context) bool {
	return security.FromContext(ctx).IsGlobalAdmin()
}
