package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hr_backoffice/platform/security"
	"hr_backoffice/platform/tenancy"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type jwtConfig struct{}

func (jwtConfig) GetJWTAccessSecret() string { return "test-secret" }
func (jwtConfig) GetGlobalAdminRole() string { return "global_admin" }

func TestTenantContextResolvesAndClears(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{name: "no header", header: "", want: "public"},
		{name: "explicit tenant", header: "acme", want: "acme"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				holder *tenancy.Holder
				seen   string
			)
			r := gin.New()
			r.Use(TenantContext("public"))
			r.GET("/probe", func(c *gin.Context) {
				holder, _ = tenancy.HolderFrom(c.Request.Context())
				seen, _ = tenancy.TenantID(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if tc.header != "" {
				req.Header.Set(HeaderTenantID, tc.header)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)

			if seen != tc.want {
				t.Fatalf("expected tenant %q during request, got %q", tc.want, seen)
			}
			if _, ok := holder.Get(); ok {
				t.Fatal("tenant must be unset after the request completes")
			}
		})
	}
}

func TestTenantContextClearsAfterPanic(t *testing.T) {
	var holder *tenancy.Holder
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	r.Use(TenantContext("public"))
	r.GET("/boom", func(c *gin.Context) {
		holder, _ = tenancy.HolderFrom(c.Request.Context())
		panic("handler exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderTenantID, "acme")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if _, ok := holder.Get(); ok {
		t.Fatal("tenant must be unset after a panicking request")
	}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthRequiredBuildsPrincipal(t *testing.T) {
	var principal security.Context
	r := gin.New()
	r.Use(AuthRequired(jwtConfig{}, nil))
	r.GET("/me", func(c *gin.Context) {
		principal = GetPrincipal(c)
		c.Status(http.StatusNoContent)
	})

	token := signToken(t, jwt.MapClaims{
		"sub":                "f3b1",
		"preferred_username": "ana",
		"empresa_ids":        []any{5, "7"},
		"roles":              []any{"hr"},
		"exp":                time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if principal.CurrentUsername() != "ana" {
		t.Fatalf("expected username ana, got %q", principal.CurrentUsername())
	}
	if !principal.CanAccessEmpresa(5) || !principal.CanAccessEmpresa(7) || principal.CanAccessEmpresa(15) {
		t.Fatalf("unexpected empresa scope %v", principal.AllowedEmpresaIDs())
	}
	if principal.IsGlobalAdmin() {
		t.Fatal("principal without admin role must not be admin")
	}
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	r := gin.New()
	r.Use(AuthRequired(jwtConfig{}, nil))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("other"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for name, header := range map[string]string{
		"missing":    "",
		"forged":     "Bearer " + forged,
		"bad scope":  "Bearer " + signToken(t, jwt.MapClaims{"sub": "x", "empresa_ids": "5"}),
		"no subject": "Bearer " + signToken(t, jwt.MapClaims{"roles": []any{"global_admin"}}),
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestAuthRequiredRecognisesGlobalAdmin(t *testing.T) {
	var principal security.Context
	r := gin.New()
	r.Use(AuthRequired(jwtConfig{}, nil))
	r.GET("/me", func(c *gin.Context) {
		principal = GetPrincipal(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": "root", "roles": []any{"global_admin"}}))
	r.ServeHTTP(httptest.NewRecorder(), req)

	if principal == nil || !principal.IsGlobalAdmin() {
		t.Fatal("expected global admin principal")
	}
}
