// Package store persists analysis extracts in Postgres.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS project_extracts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		chat_name TEXT NOT NULL,
		analysis_date TIMESTAMP WITH TIME ZONE NOT NULL,
		summary TEXT NOT NULL,
		milestones TEXT[] DEFAULT '{}',
		progress_percentage REAL DEFAULT 0.0,
		key_insights TEXT[] DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_project_extracts_chat_name
		ON project_extracts(chat_name)`,
	`CREATE INDEX IF NOT EXISTS idx_project_extracts_analysis_date
		ON project_extracts(analysis_date DESC)`,
}

// EnsureSchema creates the extracts table and its indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
