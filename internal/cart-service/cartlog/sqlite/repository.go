// Package sqlite provides a SQLite-backed implementation of cartlog.Repository.
//
// WAL mode is enabled on Open so the request path can append while the
// history endpoint reads.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/cartlog"

	// Pure-Go SQLite driver, no CGO.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cart_logs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    cart_id     TEXT    NOT NULL,
    action      TEXT    NOT NULL,
    item_id     TEXT    NOT NULL DEFAULT '',
    quantity    INTEGER NOT NULL DEFAULT 0,
    version     INTEGER NOT NULL DEFAULT 0,
    total       TEXT    NOT NULL DEFAULT '',
    error       TEXT,
    request_id  TEXT    NOT NULL DEFAULT '',
    trace_id    TEXT    NOT NULL DEFAULT '',
    span_id     TEXT    NOT NULL DEFAULT '',
    at          TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cart_logs_cart_id ON cart_logs(cart_id, at);
CREATE INDEX IF NOT EXISTS idx_cart_logs_trace_id ON cart_logs(trace_id);
`

var _ cartlog.Repository = (*Repository)(nil)

// Repository is the SQLite implementation of cartlog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/cartlog.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping verifies the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save appends an entry. It is safe to call concurrently.
func (r *Repository) Save(ctx context.Context, e *cartlog.Entry) error {
	const q = `
		INSERT INTO cart_logs
			(cart_id, action, item_id, quantity, version, total, error, request_id, trace_id, span_id, at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		e.CartID,
		string(e.Action),
		e.ItemID,
		e.Quantity,
		int64(e.Version),
		e.Total,
		nullableString(e.Error),
		e.RequestID,
		e.TraceID,
		e.SpanID,
		formatTime(e.At),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save cart log for %q: %w", e.CartID, err)
	}
	return nil
}

// List returns every entry for a cart, oldest first.
func (r *Repository) List(ctx context.Context, cartID string) ([]cartlog.Entry, error) {
	const q = `
		SELECT cart_id, action, item_id, quantity, version, total, COALESCE(error,''),
		       request_id, trace_id, span_id, at
		FROM   cart_logs
		WHERE  cart_id = ?
		ORDER  BY at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, cartID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list cart log for %q: %w", cartID, err)
	}
	defer rows.Close()

	var out []cartlog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list cart log for %q: %w", cartID, err)
	}
	return out, nil
}

// GetLatest returns the most recent entry for a cart.
func (r *Repository) GetLatest(ctx context.Context, cartID string) (*cartlog.Entry, error) {
	const q = `
		SELECT cart_id, action, item_id, quantity, version, total, COALESCE(error,''),
		       request_id, trace_id, span_id, at
		FROM   cart_logs
		WHERE  cart_id = ?
		ORDER  BY at DESC, id DESC
		LIMIT  1`

	e, err := scanEntry(r.db.QueryRowContext(ctx, q, cartID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: %w for cart %q", cartlog.ErrNotFound, cartID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get latest for %q: %w", cartID, err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*cartlog.Entry, error) {
	var (
		e       cartlog.Entry
		action  string
		version int64
		at      string
	)
	if err := s.Scan(
		&e.CartID,
		&action,
		&e.ItemID,
		&e.Quantity,
		&version,
		&e.Total,
		&e.Error,
		&e.RequestID,
		&e.TraceID,
		&e.SpanID,
		&at,
	); err != nil {
		return nil, err
	}
	e.Action = cartlog.Action(action)
	e.Version = uint64(version)

	t, err := parseTime(at)
	if err != nil {
		return nil, err
	}
	e.At = t
	return &e, nil
}

// nullableString stores empty strings as NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
