package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

func newMockStore(t *testing.T) (*RefreshTokenStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRefreshTokenStore(db), mock
}

func successor(now time.Time) *domain.RefreshToken {
	return &domain.RefreshToken{
		Token:     "next",
		UserID:    "u-1",
		TenantID:  "t-1",
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRotate_CommitsBothWrites(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens").WithArgs("next", now, "old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := store.Rotate(context.Background(), "old", successor(now), now); err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotate_AlreadyRevokedRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens").WithArgs("next", now, "old").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Rotate(context.Background(), "old", successor(now), now)
	if err != domain.ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotate_SuccessorFailureIsFatal(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into refresh_tokens").WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := store.Rotate(context.Background(), "old", successor(now), now)
	if !errors.Is(err, domain.ErrRotationIncomplete) {
		t.Fatalf("expected ErrRotationIncomplete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByToken(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := []string{"id", "token", "user_id", "tenant_id", "expires_at", "is_revoked",
		"replaced_by_token", "ip_address", "user_agent", "created_at", "updated_at"}

	mock.ExpectQuery("select id, token").WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("rt-1", "abc", "u-1", "t-1", now.Add(time.Hour), true, "def", "10.0.0.1", "curl", now, now))
	mock.ExpectQuery("select id, token").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))

	got, err := store.FindByToken(context.Background(), "abc")
	if err != nil {
		t.Fatalf("FindByToken returned error: %v", err)
	}
	if !got.IsRevoked || got.ReplacedByToken != "def" || got.UserID != "u-1" {
		t.Fatalf("unexpected token: %+v", got)
	}

	if _, err := store.FindByToken(context.Background(), "missing"); err != domain.ErrRefreshTokenNotFound {
		t.Fatalf("expected ErrRefreshTokenNotFound, got %v", err)
	}
}

func TestRevokeAndSweep(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("update refresh_tokens set is_revoked = true").WithArgs("abc").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("update refresh_tokens set is_revoked = true").WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("delete from refresh_tokens").WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 5))

	revoked, err := store.Revoke(context.Background(), "abc")
	if err != nil || revoked {
		t.Fatalf("expected no-op revoke, got %v %v", revoked, err)
	}
	n, err := store.RevokeAllForUser(context.Background(), "u-1")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 revoked, got %d %v", n, err)
	}
	n, err = store.DeleteExpired(context.Background(), now)
	if err != nil || n != 5 {
		t.Fatalf("expected 5 deleted, got %d %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
