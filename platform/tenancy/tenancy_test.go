package tenancy

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestHolderLifecycle(t *testing.T) {
	h := NewHolder()
	if _, ok := h.Get(); ok {
		t.Fatal("new holder must be unset")
	}

	h.Set("acme")
	if id, ok := h.Get(); !ok || id != "acme" {
		t.Fatalf("expected acme, got %q (set=%v)", id, ok)
	}

	h.Clear()
	if _, ok := h.Get(); ok {
		t.Fatal("holder must be unset after Clear")
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	if got := Resolve("", "public"); got != "public" {
		t.Fatalf("expected default tenant, got %q", got)
	}
	if got := Resolve("   ", "public"); got != "public" {
		t.Fatalf("blank header must fall back, got %q", got)
	}
	if got := Resolve(" acme ", "public"); got != "acme" {
		t.Fatalf("expected acme, got %q", got)
	}
}

func TestScopeClearsOnErrorAndPanic(t *testing.T) {
	var captured *Holder
	errBoom := errors.New("boom")

	err := Scope(context.Background(), "acme", func(ctx context.Context) error {
		captured, _ = HolderFrom(ctx)
		if id, ok := TenantID(ctx); !ok || id != "acme" {
			t.Fatalf("expected acme inside scope, got %q", id)
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}
	if _, ok := captured.Get(); ok {
		t.Fatal("holder must be cleared after scope returns an error")
	}

	func() {
		defer func() { _ = recover() }()
		_ = Scope(context.Background(), "globex", func(ctx context.Context) error {
			captured, _ = HolderFrom(ctx)
			panic("handler exploded")
		})
	}()
	if _, ok := captured.Get(); ok {
		t.Fatal("holder must be cleared after scope panics")
	}
}

func TestConcurrentScopesDoNotLeak(t *testing.T) {
	var wg sync.WaitGroup
	tenants := []string{"acme", "globex", "initech", "umbrella"}
	errs := make(chan error, len(tenants)*50)

	for i := 0; i < 50; i++ {
		for _, tenant := range tenants {
			wg.Add(1)
			go func(tenant string) {
				defer wg.Done()
				_ = Scope(context.Background(), tenant, func(ctx context.Context) error {
					if id, _ := TenantID(ctx); id != tenant {
						errs <- errors.New("tenant leaked across scopes: " + id)
					}
					return nil
				})
			}(tenant)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}
