package tenantinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/vendala/backoffice/pkg/errx"
	"github.com/vendala/backoffice/pkg/iam/tenant"
	"github.com/vendala/backoffice/pkg/kernel"
)

func newMockRepo(t *testing.T) (tenant.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresTenantRepository(sqlx.NewDb(db, "postgres")), mock
}

func tenantRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "metadata_id", "slug", "name", "owner_subject", "owner_email",
		"status", "created_at", "updated_at",
	}).AddRow("t-1", "meta-1", "acme", "Acme Corp", "owner-sub", "owner@acme.test",
		"ACTIVE", now, now)
}

func TestFindByMetadataID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, metadata_id, slug, name, owner_subject, owner_email, status, created_at, updated_at FROM tenants WHERE metadata_id = $1`).
		WithArgs("meta-1").
		WillReturnRows(tenantRows())

	got, err := repo.FindByMetadataID(context.Background(), "meta-1")
	if err != nil {
		t.Fatalf("FindByMetadataID: %v", err)
	}
	if got.ID != kernel.NewTenantID("t-1") || got.Slug != "acme" {
		t.Fatalf("unexpected tenant %+v", got)
	}
	if got.Status != kernel.TenantStatusActive {
		t.Fatalf("unexpected status %q", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindByMetadataID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, metadata_id, slug, name, owner_subject, owner_email, status, created_at, updated_at FROM tenants WHERE metadata_id = $1`).
		WithArgs("meta-ghost").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "metadata_id", "slug", "name", "owner_subject", "owner_email",
			"status", "created_at", "updated_at",
		}))

	_, err := repo.FindByMetadataID(context.Background(), "meta-ghost")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.Code != tenant.CodeTenantNotFound.Code {
		t.Fatalf("expected TENANT_NOT_FOUND, got %v", err)
	}
}

func TestFindBySlug_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, metadata_id, slug, name, owner_subject, owner_email, status, created_at, updated_at FROM tenants WHERE slug = $1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "metadata_id", "slug", "name", "owner_subject", "owner_email",
			"status", "created_at", "updated_at",
		}))

	_, err := repo.FindBySlug(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.Code != tenant.CodeTenantNotFound.Code {
		t.Fatalf("expected TENANT_NOT_FOUND, got %v", err)
	}
}

func TestFindByOwnerEmail_DBError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, metadata_id, slug, name, owner_subject, owner_email, status, created_at, updated_at FROM tenants WHERE owner_email = $1`).
		WithArgs("owner@acme.test").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByOwnerEmail(context.Background(), "owner@acme.test")
	if err == nil {
		t.Fatal("expected error")
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.Type != errx.TypeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}
