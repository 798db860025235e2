package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentID = "fanarena"

// PostgresStore persists the whole document as one jsonb row and serializes
// writers through a row lock. Update runs read-whole-document, mutate,
// write-whole-document inside a single transaction; concurrent updaters
// queue on SELECT ... FOR UPDATE, which is the single-writer boundary.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, ensures the document table exists, and seeds an
// empty document on first run.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute
	config.ConnConfig.ConnectTimeout = time.Second * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS app_documents (
			id         TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure document table: %w", err)
	}

	empty, err := json.Marshal(NewState())
	if err != nil {
		return fmt.Errorf("failed to marshal empty document: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO app_documents (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		documentID, empty)
	if err != nil {
		return fmt.Errorf("failed to seed document: %w", err)
	}
	return nil
}

// Update implements Store
func (s *PostgresStore) Update(ctx context.Context, fn func(*State) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	state, err := readDocument(ctx, tx, true)
	if err != nil {
		return err
	}

	if err := fn(state); err != nil {
		return err
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE app_documents SET doc = $2, updated_at = now() WHERE id = $1`,
		documentID, raw); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document update: %w", err)
	}
	return nil
}

// View implements Store
func (s *PostgresStore) View(ctx context.Context, fn func(*State) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	state, err := readDocument(ctx, tx, false)
	if err != nil {
		return err
	}
	return fn(state)
}

func readDocument(ctx context.Context, tx pgx.Tx, forUpdate bool) (*State, error) {
	query := `SELECT doc FROM app_documents WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var raw []byte
	if err := tx.QueryRow(ctx, query, documentID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("application document %q missing", documentID)
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	state := &State{}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	state.normalize()
	return state, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
