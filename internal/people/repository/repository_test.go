package repository

import (
	"errors"
	"fmt"
	"testing"

	"hr_backoffice/platform/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateCreateRejectsCrossTenantReferences(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind apperr.Kind
		msg  string
	}{
		{"company of another tenant", &pgconn.PgError{Code: "23503", ConstraintName: "employees_company_fk"}, apperr.KindValidation, foreignCompanyMsg},
		{"department of another company", &pgconn.PgError{Code: "23503", ConstraintName: "employees_department_fk"}, apperr.KindValidation, foreignDepartmentMsg},
		{"other foreign key", &pgconn.PgError{Code: "23503"}, apperr.KindValidation, unknownCompanyDeptMsg},
		{"duplicate email", &pgconn.PgError{Code: "23505"}, apperr.KindConflict, duplicateEmailMsg},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := translateCreate(fmt.Errorf("insert employee: %w", tc.err))
			if !apperr.Is(err, tc.kind) {
				t.Fatalf("expected kind %v, got %v", tc.kind, err)
			}
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Message != tc.msg {
				t.Fatalf("expected message %q, got %v", tc.msg, err)
			}
		})
	}

	plain := errors.New("connection refused")
	if got := translateCreate(plain); got != plain {
		t.Fatalf("expected unrelated errors unchanged, got %v", got)
	}
}
