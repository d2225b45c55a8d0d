package repositories

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

// Store handles database operations for text repositories
type Store struct {
	db  bun.IDB
	log *slog.Logger
}

// NewStore creates a new repositories store
func NewStore(db bun.IDB, log *slog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With(logger.Scope("repositories.repo")),
	}
}

func (s *Store) Create(ctx context.Context, r *TextRepository) error {
	_, err := s.db.NewInsert().
		Model(r).
		ExcludeColumn("id", "created_at", "updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// FindByID returns nil, nil when not found.
func (s *Store) FindByID(ctx context.Context, id string) (*TextRepository, error) {
	var r TextRepository
	err := s.db.NewSelect().Model(&r).Where("r.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.log.Error("failed to find repository", slog.String("id", id), logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &r, nil
}

// FindByName returns the first repository with the given name and manager.
func (s *Store) FindByName(ctx context.Context, name, manager string) (*TextRepository, error) {
	var r TextRepository
	err := s.db.NewSelect().Model(&r).
		Where("r.name = ?", name).
		Where("r.manager = ?", manager).
		OrderExpr("r.created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &r, nil
}

func (s *Store) List(ctx context.Context) ([]TextRepository, error) {
	var out []TextRepository
	if err := s.db.NewSelect().Model(&out).OrderExpr("r.name ASC").Scan(ctx); err != nil {
		s.log.Error("failed to list repositories", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, r *TextRepository, columns ...string) error {
	r.UpdatedAt = time.Now()
	_, err := s.db.NewUpdate().Model(r).Column(append(columns, "updated_at")...).WherePK().Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// Delete removes the repository; its texts keep existing without one.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.NewDelete().Model((*TextRepository)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return false, apperror.FromDB(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
