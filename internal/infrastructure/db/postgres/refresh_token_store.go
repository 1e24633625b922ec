package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
)

type RefreshTokenStore struct {
	db *sql.DB
}

var _ ports.RefreshTokenStore = (*RefreshTokenStore)(nil)

func NewRefreshTokenStore(db *sql.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

const insertToken = `insert into refresh_tokens
	(id, token, user_id, tenant_id, expires_at, is_revoked, replaced_by_token, ip_address, user_agent, created_at, updated_at)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const selectColumns = `select id, token, user_id, tenant_id, expires_at, is_revoked,
	coalesce(replaced_by_token, ''), coalesce(ip_address, ''), coalesce(user_agent, ''), created_at, updated_at
	from refresh_tokens`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, ex execer, t *domain.RefreshToken) error {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := ex.ExecContext(ctx, insertToken,
		id, t.Token, t.UserID, t.TenantID, t.ExpiresAt, t.IsRevoked,
		nullable(t.ReplacedByToken), nullable(t.IPAddress), nullable(t.UserAgent),
		t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (s *RefreshTokenStore) Create(ctx context.Context, t *domain.RefreshToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := insert(ctx, s.db, t); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, selectColumns+` where token = $1`, token)
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &t, nil
}

// Rotate runs the conditional revoke and the successor insert in one
// transaction. Zero affected rows on the revoke means another caller already
// rotated or revoked the token.
func (s *RefreshTokenStore) Rotate(ctx context.Context, oldToken string, next *domain.RefreshToken, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `update refresh_tokens
		set is_revoked = true, replaced_by_token = $1, updated_at = $2
		where token = $3 and is_revoked = false and expires_at > $2`,
		next.Token, now, oldToken,
	)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if n != 1 {
		return domain.ErrInvalidRefreshToken
	}

	if err := insert(ctx, tx, next); err != nil {
		return fmt.Errorf("%w: insert successor: %v", domain.ErrRotationIncomplete, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrRotationIncomplete, err)
	}
	return nil
}

func (s *RefreshTokenStore) Revoke(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens set is_revoked = true, updated_at = now() where token = $1 and is_revoked = false`,
		token,
	)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return n > 0, nil
}

func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens set is_revoked = true, updated_at = now() where user_id = $1 and is_revoked = false`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

func (s *RefreshTokenStore) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		selectColumns+` where user_id = $1 and is_revoked = false and expires_at > $2 order by created_at desc`,
		userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RefreshToken, 0)
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *RefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(s scanner) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := s.Scan(&t.ID, &t.Token, &t.UserID, &t.TenantID, &t.ExpiresAt, &t.IsRevoked,
		&t.ReplacedByToken, &t.IPAddress, &t.UserAgent, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
