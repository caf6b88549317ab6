// Package store keeps level documents in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
)

// Summary describes a stored level without decoding its document.
type Summary struct {
	Name        string
	Title       string
	Description string
	RoadCount   int
	UpdatedAt   time.Time
}

// Store wraps a pgx connection pool holding the levels table.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a Store.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Kind identifies the store in level listings.
func (s *Store) Kind() string {
	return "postgres"
}

// List returns the names of all stored levels in name order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM levels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying levels: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning level names: %w", err)
	}
	return names, nil
}

// Summaries returns every stored level, most recently updated first.
func (s *Store) Summaries(ctx context.Context) ([]Summary, error) {
	query := `
		SELECT name, title, description, road_count, updated_at
		FROM levels
		ORDER BY updated_at DESC, name
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying level summaries: %w", err)
	}
	defer rows.Close()

	result := make([]Summary, 0, 16)
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.Name, &sum.Title, &sum.Description, &sum.RoadCount, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning level summary: %w", err)
		}
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating level summaries: %w", err)
	}
	return result, nil
}

// Load decodes and validates the level stored under name. A missing level
// yields an error matching fs.ErrNotExist.
func (s *Store) Load(ctx context.Context, name string) (*engine.LevelConfig, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM levels WHERE name = $1`, name).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("level %q: %w", name, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("querying level %q: %w", name, err)
	}

	level, err := engine.ParseLevel(doc, ".json")
	if err != nil {
		return nil, fmt.Errorf("decoding level %q: %w", name, err)
	}
	return level, nil
}

// Save validates level and inserts or replaces it under name.
func (s *Store) Save(ctx context.Context, name string, level *engine.LevelConfig) error {
	if err := engine.ValidateLevelConfig(level); err != nil {
		return err
	}
	doc, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("encoding level %q: %w", name, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO levels (name, title, description, road_count, document)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			road_count = EXCLUDED.road_count,
			document = EXCLUDED.document,
			updated_at = now()`,
		name, level.Name, level.Description, len(level.Roads), doc,
	)
	if err != nil {
		return fmt.Errorf("saving level %q: %w", name, err)
	}
	slog.Debug("level saved", "name", name, "roads", len(level.Roads))
	return nil
}

// Delete removes the level stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM levels WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting level %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("level %q: %w", name, fs.ErrNotExist)
	}
	return nil
}
