package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/leafsync/internal/dbx"
	"github.com/dmitrijs2005/leafsync/internal/docstore/migrations"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDocStore implements DocStore over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresDocStore struct {
	db dbx.DBTX
}

// NewPostgresDocStore constructs a store bound to the given DBTX.
func NewPostgresDocStore(db dbx.DBTX) *PostgresDocStore {
	return &PostgresDocStore{db: db}
}

// Insert writes one scan record. It expects exactly one row to be affected.
func (r *PostgresDocStore) Insert(ctx context.Context, rec Record) (string, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO scans (id, user_id, image_url, disease_name, crop_name, confidence, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	res, err := r.db.ExecContext(ctx, query,
		id, rec.UserID, rec.ImageURL, rec.DiseaseName, rec.CropName, rec.Confidence, rec.CapturedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert scan: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return "", fmt.Errorf("unexpected rows affected: %d", n)
	}

	return id, nil
}

// OpenLazy opens a PostgreSQL handle without touching the network.
// The offline-first client uses it so startup never depends on
// connectivity; schema setup happens later via Migrate once a connection
// is possible.
func OpenLazy(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db)
}

// WaitReady pings the database with bounded fibonacci backoff until it
// answers or the retries run out. A freshly started PostgreSQL may accept
// connections before it serves queries.
func WaitReady(ctx context.Context, db *sql.DB) error {
	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(db.PingContext(ctx))
	})
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
