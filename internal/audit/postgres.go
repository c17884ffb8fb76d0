// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Error codes for audit persistence failures.
const (
	CodeAuditStoreFailed = "AUDIT_STORE_FAILED"
)

// pgxPool is the subset of pgxpool.Pool the recorder uses. Tests substitute
// a pgxmock pool.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresRecorder implements Recorder using PostgreSQL. Transient
// connection errors are retried with fibonacci backoff before the write is
// given up on.
type PostgresRecorder struct {
	pool pgxPool
}

// NewPostgresRecorder connects a recorder to the database at dsn.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code(CodeAuditStoreFailed).
			With("operation", "connect").
			Wrap(err)
	}
	return &PostgresRecorder{pool: pool}, nil
}

// NewPostgresRecorderWithPool wraps an existing pool.
func NewPostgresRecorderWithPool(pool pgxPool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

// Close closes the connection pool.
func (r *PostgresRecorder) Close() {
	r.pool.Close()
}

// Record inserts an audit entry, retrying transient failures.
func (r *PostgresRecorder) Record(ctx context.Context, entry Entry) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO interaction_audit
			   (id, player_id, account_id, level_id, object_id, interaction_id, outcome, reason, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			entry.ID.String(),
			entry.PlayerID,
			entry.AccountID,
			entry.LevelID,
			entry.ObjectID,
			entry.InteractionID,
			entry.Outcome,
			entry.Reason,
			entry.CreatedAt,
		)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return oops.Code(CodeAuditStoreFailed).
			With("operation", "record").
			With("entry_id", entry.ID.String()).
			Wrap(err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, player_id, account_id, level_id, object_id, interaction_id, outcome, reason, created_at
		 FROM interaction_audit ORDER BY id DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, oops.Code(CodeAuditStoreFailed).
			With("operation", "recent").
			Wrap(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var idStr string
		if err := rows.Scan(&idStr, &e.PlayerID, &e.AccountID, &e.LevelID, &e.ObjectID,
			&e.InteractionID, &e.Outcome, &e.Reason, &e.CreatedAt); err != nil {
			return nil, oops.Code(CodeAuditStoreFailed).
				With("operation", "scan").
				Wrap(err)
		}
		e.ID, err = ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code(CodeAuditStoreFailed).
				With("operation", "parse_id").
				With("id", idStr).
				Wrap(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code(CodeAuditStoreFailed).
			With("operation", "iterate").
			Wrap(err)
	}
	return entries, nil
}

// isTransient reports whether a write failure is worth retrying: connection
// drops, deadlocks, and serialization conflicts.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgerrcode.IsConnectionException(pgErr.Code) ||
		pgErr.Code == pgerrcode.DeadlockDetected ||
		pgErr.Code == pgerrcode.SerializationFailure
}
