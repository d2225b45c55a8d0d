package templates

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/vogonweb/vogon/internal/database"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

// Repository handles database operations for relation templates
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new templates repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("templates.repo")),
	}
}

// Create inserts a template and its parts in one transaction.
func (r *Repository) Create(ctx context.Context, t *Template) error {
	return database.WithTx(ctx, r.db, func(tx bun.IDB) error {
		return r.insert(ctx, tx, t)
	})
}

// CreateAll inserts several templates atomically.
func (r *Repository) CreateAll(ctx context.Context, ts []*Template) error {
	return database.WithTx(ctx, r.db, func(tx bun.IDB) error {
		for _, t := range ts {
			if err := r.insert(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) insert(ctx context.Context, tx bun.IDB, t *Template) error {
	if _, err := tx.NewInsert().
		Model(t).
		ExcludeColumn("id", "created_at").
		Returning("*").
		Exec(ctx); err != nil {
		return apperror.FromDB(err)
	}
	if len(t.Parts) == 0 {
		return nil
	}
	for _, p := range t.Parts {
		p.TemplateID = t.ID
	}
	if _, err := tx.NewInsert().
		Model(&t.Parts).
		ExcludeColumn("id").
		Returning("*").
		Exec(ctx); err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// FindByID loads a template with its parts. Returns nil, nil when not found.
func (r *Repository) FindByID(ctx context.Context, id string) (*Template, error) {
	var t Template
	err := r.db.NewSelect().
		Model(&t).
		Relation("Parts", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("rtp.internal_id ASC")
		}).
		Where("rt.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to find template", slog.String("id", id), logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &t, nil
}

// List returns templates without their parts.
func (r *Repository) List(ctx context.Context, search string) ([]Template, error) {
	out := []Template{}
	q := r.db.NewSelect().Model(&out)
	if search != "" {
		q = q.Where("rt.name ILIKE ?", "%"+search+"%")
	}
	if err := q.OrderExpr("rt.name ASC").Scan(ctx); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model((*Template)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}
