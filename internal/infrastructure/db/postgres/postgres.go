// Package postgres is the relational refresh-token store, an alternative to
// the Mongo one for deployments that keep sessions next to other SQL data.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultTimeout = 5 * time.Second

// Open returns a pooled *sql.DB using the pgx driver and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

const schema = `
create table if not exists refresh_tokens (
	id                text primary key,
	token             text not null unique,
	user_id           text not null,
	tenant_id         text not null,
	expires_at        timestamptz not null,
	is_revoked        boolean not null default false,
	replaced_by_token text,
	ip_address        text,
	user_agent        text,
	created_at        timestamptz not null default now(),
	updated_at        timestamptz not null default now()
);
create index if not exists refresh_tokens_user_tenant_idx on refresh_tokens (user_id, tenant_id);
create index if not exists refresh_tokens_expires_idx on refresh_tokens (expires_at);
`

// EnsureSchema creates the refresh_tokens table and its indexes.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
