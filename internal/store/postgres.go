package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/promptopia/backend/internal/models"
)

// PromptStore handles prompt CRUD against PostgreSQL.
type PromptStore struct {
	pool *pgxpool.Pool
}

func NewPromptStore(pool *pgxpool.Pool) *PromptStore {
	return &PromptStore{pool: pool}
}

// Migrate creates the prompts table if it doesn't exist.
func (s *PromptStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS prompts (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			creator_id VARCHAR(24) NOT NULL,
			prompt     TEXT        NOT NULL,
			tag        VARCHAR(100) NOT NULL DEFAULT '',
			is_public  BOOLEAN     NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (s *PromptStore) Create(ctx context.Context, creatorID, prompt, tag string, isPublic bool) (*models.Prompt, error) {
	var p models.Prompt
	err := s.pool.QueryRow(ctx,
		`INSERT INTO prompts (creator_id, prompt, tag, is_public)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, creator_id, prompt, tag, is_public, created_at`,
		creatorID, prompt, tag, isPublic,
	).Scan(&p.ID, &p.CreatorID, &p.Prompt, &p.Tag, &p.IsPublic, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}
	return &p, nil
}

// GetByID returns (nil, nil) when the id is unknown or not a UUID.
func (s *PromptStore) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var p models.Prompt
	err := s.pool.QueryRow(ctx,
		`SELECT id, creator_id, prompt, tag, is_public, created_at
		 FROM prompts WHERE id = $1`, id,
	).Scan(&p.ID, &p.CreatorID, &p.Prompt, &p.Tag, &p.IsPublic, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	return &p, nil
}

func (s *PromptStore) ListPublic(ctx context.Context) ([]models.Prompt, error) {
	return s.list(ctx,
		`SELECT id, creator_id, prompt, tag, is_public, created_at
		 FROM prompts WHERE is_public ORDER BY created_at DESC`)
}

func (s *PromptStore) ListByCreator(ctx context.Context, creatorID string) ([]models.Prompt, error) {
	return s.list(ctx,
		`SELECT id, creator_id, prompt, tag, is_public, created_at
		 FROM prompts WHERE creator_id = $1 ORDER BY created_at DESC`, creatorID)
}

func (s *PromptStore) list(ctx context.Context, query string, args ...any) ([]models.Prompt, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.Prompt
	for rows.Next() {
		var p models.Prompt
		if err := rows.Scan(&p.ID, &p.CreatorID, &p.Prompt, &p.Tag, &p.IsPublic, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

func (s *PromptStore) Update(ctx context.Context, id, prompt, tag string) (*models.Prompt, error) {
	var p models.Prompt
	err := s.pool.QueryRow(ctx,
		`UPDATE prompts SET prompt = $2, tag = $3 WHERE id = $1
		 RETURNING id, creator_id, prompt, tag, is_public, created_at`,
		id, prompt, tag,
	).Scan(&p.ID, &p.CreatorID, &p.Prompt, &p.Tag, &p.IsPublic, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update prompt: %w", err)
	}
	return &p, nil
}

func (s *PromptStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	return err
}

func (s *PromptStore) CountByCreator(ctx context.Context, creatorID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM prompts WHERE creator_id = $1`, creatorID,
	).Scan(&n)
	return n, err
}

func (s *PromptStore) CountPublic(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prompts WHERE is_public`).Scan(&n)
	return n, err
}
