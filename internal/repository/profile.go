package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundly-app/foundly/internal/common"
	"github.com/foundly-app/foundly/internal/entity"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
	// Upsert creates the profile on first sight and refreshes the mutable
	// fields afterwards.
	Upsert(ctx context.Context, p *entity.Profile) (*entity.Profile, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type profileRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewProfileRepository(pool *pgxpool.Pool, logger *slog.Logger) ProfileRepository {
	return &profileRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	var p entity.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_name, email, photo_url, created_at, updated_at
		FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.DisplayName, &p.Email, &p.PhotoURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError(common.ErrNotFound, fmt.Sprintf("profile %s not found", id), err)
	}
	if err != nil {
		r.logger.Error("failed to get profile", "profile_id", id, "error", err)
		return nil, common.NewAppError(common.ErrDatabase, "failed to get profile", err)
	}
	return &p, nil
}

func (r *profileRepository) Upsert(ctx context.Context, p *entity.Profile) (*entity.Profile, error) {
	now := time.Now().UTC()
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, display_name, email, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			photo_url = EXCLUDED.photo_url,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.DisplayName, p.Email, p.PhotoURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to upsert profile", "profile_id", p.ID, "error", err)
		return nil, common.NewAppError(common.ErrDatabase, "failed to upsert profile", err)
	}
	return p, nil
}

func (r *profileRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check profile existence", "profile_id", id, "error", err)
		return false, common.NewAppError(common.ErrDatabase, "failed to check profile existence", err)
	}
	return exists, nil
}
