// Package security exposes the authenticated principal and its authorization
// scope without referencing the identity provider or the web framework.
package security

import (
	"context"
	"slices"
)

// Context is the capability set the rest of the system consumes. An empty
// allowed set is a valid state meaning "no access".
type Context interface {
	CurrentUsername() string
	AllowedClienteIDs() []int64
	AllowedEmpresaIDs() []int64
	IsGlobalAdmin() bool
	CanAccessCliente(id int64) bool
	CanAccessEmpresa(id int64) bool
}

// Principal is the value derived once per authenticated request.
type Principal struct {
	Username    string
	ClienteIDs  []int64
	EmpresaIDs  []int64
	GlobalAdmin bool
}

var _ Context = Principal{}

func (p Principal) CurrentUsername() string { return p.Username }
func (p Principal) IsGlobalAdmin() bool     { return p.GlobalAdmin }

// AllowedClienteIDs returns a copy so callers cannot mutate the principal.
func (p Principal) AllowedClienteIDs() []int64 { return slices.Clone(p.ClienteIDs) }

// AllowedEmpresaIDs returns a copy so callers cannot mutate the principal.
func (p Principal) AllowedEmpresaIDs() []int64 { return slices.Clone(p.EmpresaIDs) }

// CanAccessCliente reports set membership only. The admin bypass lives in
// the access validator.
func (p Principal) CanAccessCliente(id int64) bool {
	return slices.Contains(p.ClienteIDs, id)
}

// CanAccessEmpresa reports set membership only.
func (p Principal) CanAccessEmpresa(id int64) bool {
	return slices.Contains(p.EmpresaIDs, id)
}

// Anonymous is the principal of an unauthenticated unit of work.
var Anonymous = Principal{}

type contextKey struct{}

// WithContext attaches sc to ctx.
func WithContext(ctx context.Context, sc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, sc)
}

// FromContext returns the security context in ctx, or Anonymous.
func FromContext(ctx context.Context) Context {
	if ctx == nil {
		return Anonymous
	}
	if sc, ok := ctx.Value(contextKey{}).(Context); ok && sc != nil {
		return sc
	}
	return Anonymous
}
