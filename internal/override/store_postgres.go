package override

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/ksuid"
)

const dbTimeout = 5 * time.Second

// activateLockID keys the advisory lock serializing Activate calls.
const activateLockID int64 = 824262

// PostgresStore is a PostgreSQL-backed Store implementation. The
// single-active invariant is guaranteed by running "deactivate all,
// activate one" inside one transaction holding a transaction-scoped
// advisory lock, so concurrent Activate calls run one at a time and
// the one committing last wins.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed override store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the override table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS dataset_overrides (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			json_text   TEXT NOT NULL,
			is_active   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_by  TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("create overrides table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(rec Record) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	id := ksuid.New().String()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO dataset_overrides (id, name, description, json_text, is_active, created_at, created_by)
		 VALUES ($1, $2, $3, $4, FALSE, $5, $6)`,
		id, rec.Name, rec.Description, rec.JSONText, createdAt, rec.CreatedBy,
	)
	if err != nil {
		return "", fmt.Errorf("create override: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Get(id string) (*Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var rec Record
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, json_text, is_active, created_at, created_by
		 FROM dataset_overrides
		 WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.Name, &rec.Description, &rec.JSONText, &rec.IsActive, &rec.CreatedAt, &rec.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("override not found: %s", id)
		}
		return nil, fmt.Errorf("get override: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) List() ([]Summary, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, is_active, created_at, created_by
		 FROM dataset_overrides
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Description, &sum.IsActive, &sum.CreatedAt, &sum.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	return summaries, nil
}

func (s *PostgresStore) Activate(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin activate: %w", err)
	}
	defer tx.Rollback(ctx)

	// READ COMMITTED does not serialize two activations whose updates
	// touch disjoint rows (with no row active, both deactivate-all
	// statements match nothing and both targets end active). The
	// advisory lock is held until commit or rollback and makes the
	// whole deactivate-then-activate unit exclusive.
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock($1)`, activateLockID); err != nil {
		return fmt.Errorf("lock overrides: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE dataset_overrides SET is_active = FALSE WHERE is_active`); err != nil {
		return fmt.Errorf("deactivate overrides: %w", err)
	}

	cmd, err := tx.Exec(ctx,
		`UPDATE dataset_overrides SET is_active = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("activate override: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("override not found: %s", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit activate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Deactivate(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE dataset_overrides SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate override: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("override not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`DELETE FROM dataset_overrides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("override not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) Active() (*Record, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var rec Record
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, json_text, is_active, created_at, created_by
		 FROM dataset_overrides
		 WHERE is_active
		 LIMIT 1`,
	).Scan(&rec.ID, &rec.Name, &rec.Description, &rec.JSONText, &rec.IsActive, &rec.CreatedAt, &rec.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get active override: %w", err)
	}
	return &rec, true, nil
}
