package giles

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

// Repository stores Giles tokens
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new giles token repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("giles.repo")),
	}
}

// FindByUser returns nil, nil when the user has no token.
func (r *Repository) FindByUser(ctx context.Context, userID string) (*Token, error) {
	var t Token
	err := r.db.NewSelect().Model(&t).Where("gt.user_id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &t, nil
}

// Upsert stores the token, replacing the user's previous one.
func (r *Repository) Upsert(ctx context.Context, t *Token) error {
	_, err := r.db.NewInsert().
		Model(t).
		ExcludeColumn("id", "created_at").
		On("CONFLICT (user_id) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("created_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}
