// Package tenancy holds the active tenant for one unit of work (an inbound
// request or a consumed event). The holder travels in context.Context; there
// is no process-wide tenant state.
// This is part of the platform layer and contains no business logic.
package tenancy

import (
	"context"
	"strings"
	"sync"
)

// Holder is the single mutable tenant slot of one unit of work.
type Holder struct {
	mu  sync.RWMutex
	id  string
	set bool
}

// NewHolder returns an empty holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Set stores the tenant identifier.
func (h *Holder) Set(id string) {
	h.mu.Lock()
	h.id = id
	h.set = true
	h.mu.Unlock()
}

// Get returns the tenant identifier and whether one is set.
func (h *Holder) Get() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.id, h.set
}

// Clear removes the tenant identifier.
func (h *Holder) Clear() {
	h.mu.Lock()
	h.id = ""
	h.set = false
	h.mu.Unlock()
}

type holderKey struct{}

// WithHolder attaches a holder to ctx.
func WithHolder(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// HolderFrom returns the holder attached to ctx, if any.
func HolderFrom(ctx context.Context) (*Holder, bool) {
	if ctx == nil {
		return nil, false
	}
	h, ok := ctx.Value(holderKey{}).(*Holder)
	return h, ok && h != nil
}

// TenantID returns the tenant active in ctx.
func TenantID(ctx context.Context) (string, bool) {
	h, ok := HolderFrom(ctx)
	if !ok {
		return "", false
	}
	return h.Get()
}

// Resolve picks the tenant for an inbound request: the explicit value when it
// is non-blank, the configured default otherwise.
func Resolve(explicit, fallback string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	return fallback
}

// Scope runs fn with tenant id established in a fresh holder and clears it
// when fn returns, panics included. Asynchronous consumers use it to
// re-establish the tenant of the record they process.
func Scope(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	h := NewHolder()
	h.Set(id)
	defer h.Clear()
	return fn(WithHolder(ctx, h))
}
