package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const createStateTableSQL = `
CREATE TABLE IF NOT EXISTS fittrack_state
(
    key        VARCHAR PRIMARY KEY,
    doc        JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type pgxConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend keeps the document in a single jsonb row of fittrack_state.
type PostgresBackend struct {
	db  pgxConn
	key string
}

func NewPostgresBackend(db pgxConn, key string) *PostgresBackend {
	return &PostgresBackend{
		db:  db,
		key: key,
	}
}

func (b *PostgresBackend) Name() string {
	return "postgres"
}

// EnsureSchema creates the state table when it does not exist yet.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.Exec(ctx, createStateTableSQL); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	var doc []byte
	err := b.db.QueryRow(
		ctx,
		`SELECT doc FROM fittrack_state WHERE key = $1`,
		b.key,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *PostgresBackend) Write(ctx context.Context, doc []byte) error {
	tag, err := b.db.Exec(
		ctx,
		`INSERT INTO fittrack_state (key, doc, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		b.key, string(doc),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("state row not written")
	}
	return nil
}
