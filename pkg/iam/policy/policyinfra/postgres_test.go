package policyinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/vendala/backoffice/pkg/errx"
	"github.com/vendala/backoffice/pkg/iam/policy"
	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/kernel"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func seedEndpoints() []policy.Endpoint {
	now := time.Now().UTC()
	return []policy.Endpoint{
		{
			ID: kernel.NewEndpointID("ep-1"), Path: "/api/v1/platform/tenants", Method: "GET",
			Category: policy.CategoryPlatformAdmin, RequiresAuth: true, IsActive: true,
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: kernel.NewEndpointID("ep-2"), Path: "/api/v1/orders/:id", Method: "GET",
			Category: policy.CategoryOrders, RequiresAuth: true, TenantSpecific: true, IsActive: true,
			CreatedAt: now, UpdatedAt: now,
		},
	}
}

func TestSeedIfAbsent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresEndpointRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO authz_endpoints`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO authz_endpoints`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SeedIfAbsent(context.Background(), seedEndpoints()); err != nil {
		t.Fatalf("SeedIfAbsent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSeedIfAbsent_SecondRunIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresEndpointRepository(db)

	// Every row already exists; ON CONFLICT DO NOTHING reports zero rows
	// affected and the seed still succeeds without touching anything.
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO authz_endpoints`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO authz_endpoints`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.SeedIfAbsent(context.Background(), seedEndpoints()); err != nil {
		t.Fatalf("re-seed must be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSeedIfAbsent_RollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresEndpointRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO authz_endpoints`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SeedIfAbsent(context.Background(), seedEndpoints())
	if err == nil {
		t.Fatal("expected seed error")
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.Type != errx.TypeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertGrant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresGrantRepository(db)

	mock.ExpectExec(`INSERT INTO authz_role_grants`).WillReturnResult(sqlmock.NewResult(0, 1))

	g := policy.NewRoleGrant(role.SupportAgent, kernel.NewEndpointID("ep-1"), true, true, false)
	if err := repo.Upsert(context.Background(), g); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeactivateGrant_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresGrantRepository(db)

	mock.ExpectExec(`UPDATE authz_role_grants SET is_active = false`).
		WithArgs("contentManager", "ep-ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), role.ContentManager, kernel.NewEndpointID("ep-ghost"))
	if err == nil {
		t.Fatal("expected not-found error")
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.Code != policy.CodeGrantNotFound.Code {
		t.Fatalf("expected POLICY_GRANT_NOT_FOUND, got %v", err)
	}
}

func TestBulkUpsertGrants(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresGrantRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO authz_role_grants`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO authz_role_grants`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	grants := []policy.RoleGrant{
		policy.NewRoleGrant(role.SuperAdmin, kernel.NewEndpointID("ep-1"), true, true, true),
		policy.NewRoleGrant(role.SuperAdmin, kernel.NewEndpointID("ep-2"), true, true, true),
	}
	if err := repo.BulkUpsert(context.Background(), grants); err != nil {
		t.Fatalf("BulkUpsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
