package users

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

// Repository handles database operations for users
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new users repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("users.repo")),
	}
}

// Create inserts u and fills the generated columns.
func (r *Repository) Create(ctx context.Context, u *User) error {
	_, err := r.db.NewInsert().
		Model(u).
		ExcludeColumn("id", "created_at", "updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// FindByID returns nil, nil when the user does not exist.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.db.NewSelect().Model(&u).Where("u.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to find user", slog.String("id", id), logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &u, nil
}

// FindByUsername matches case-insensitively.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.NewSelect().Model(&u).Where("lower(u.username) = lower(?)", username).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to find user by username", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &u, nil
}

// List returns a page of users ordered by username with the total count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var out []User
	total, err := r.db.NewSelect().
		Model(&out).
		OrderExpr("u.username ASC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		r.log.Error("failed to list users", logger.Error(err))
		return nil, 0, apperror.ErrDatabase.WithInternal(err)
	}
	return out, total, nil
}

// Update writes the given columns of u and bumps updated_at.
func (r *Repository) Update(ctx context.Context, u *User, columns ...string) error {
	u.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(u).
		Column(append(columns, "updated_at")...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}
