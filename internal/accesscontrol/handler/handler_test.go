package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hr_backoffice/internal/access"
	"hr_backoffice/internal/accesscontrol/keycloak"
	"hr_backoffice/internal/accesscontrol/service"
	"hr_backoffice/internal/accesscontrol/transport"
	"hr_backoffice/internal/events"
	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/httpkit"
	"hr_backoffice/platform/security"
	"hr_backoffice/platform/validator"

	"github.com/gin-gonic/gin"
)

type stubDirectory struct{}

func (stubDirectory) LookupEmployee(_ context.Context, id int64) (service.Employee, error) {
	if id != 42 {
		return service.Employee{}, apperr.NotFound("employee not found")
	}
	return service.Employee{ID: 42, CompanyID: 5, Email: "a@b.com"}, nil
}

type stubIdP struct{ err error }

func (s stubIdP) CreateIdentity(context.Context, keycloak.Profile) (string, error) {
	return "kc-1", s.err
}

type stubPublisher struct{ err error }

func (s stubPublisher) Publish(context.Context, events.Event) error { return s.err }

func newRouter(idpErr, pubErr error, principal *security.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.New(service.Deps{
		Directory: stubDirectory{},
		IdP:       stubIdP{err: idpErr},
		Publisher: stubPublisher{err: pubErr},
		Access:    access.NewValidator(nil),
	})

	r := gin.New()
	r.Use(httpkit.TenantContext("acme"))
	if principal != nil {
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(security.WithContext(c.Request.Context(), *principal))
			c.Next()
		})
	}
	New(svc, validator.New("BR")).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doPost(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestProvisionIdentityStatusCodes(t *testing.T) {
	member := &security.Principal{Username: "hr", EmpresaIDs: []int64{5}}
	outsider := &security.Principal{Username: "hr", EmpresaIDs: []int64{15}}

	cases := []struct {
		name      string
		idpErr    error
		pubErr    error
		principal *security.Principal
		path      string
		body      string
		want      int
	}{
		{"created", nil, nil, member, "/api/v1/employees/42/identity", "", http.StatusCreated},
		{"created with names", nil, nil, member, "/api/v1/employees/42/identity", `{"firstName":"Ana"}`, http.StatusCreated},
		{"publication pending", nil, events.ErrPublication, member, "/api/v1/employees/42/identity", "", http.StatusAccepted},
		{"out of scope", nil, nil, outsider, "/api/v1/employees/42/identity", "", http.StatusForbidden},
		{"unknown employee", nil, nil, member, "/api/v1/employees/7/identity", "", http.StatusNotFound},
		{"bad id", nil, nil, member, "/api/v1/employees/abc/identity", "", http.StatusBadRequest},
		{"idp rejects", apperr.Validation("bad profile"), nil, member, "/api/v1/employees/42/identity", "", http.StatusBadRequest},
		{"idp conflict", apperr.Conflict("exists"), nil, member, "/api/v1/employees/42/identity", "", http.StatusConflict},
		{"idp down", apperr.Unavailable("down", nil), nil, member, "/api/v1/employees/42/identity", "", http.StatusServiceUnavailable},
		{"anonymous", nil, nil, nil, "/api/v1/employees/42/identity", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doPost(newRouter(tc.idpErr, tc.pubErr, tc.principal), tc.path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestProvisionIdentityResponseBody(t *testing.T) {
	r := newRouter(nil, events.ErrPublication, &security.Principal{Username: "hr", EmpresaIDs: []int64{5}})

	rec := doPost(r, "/api/v1/employees/42/identity", "")
	var resp transport.ProvisionIdentityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ExternalIdentityID != "kc-1" || !resp.PublicationPending {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
