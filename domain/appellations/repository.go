package appellations

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

// Repository handles database operations for appellations
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new appellations repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("appellations.repo")),
	}
}

func (r *Repository) Create(ctx context.Context, a *Appellation) error {
	_, err := r.db.NewInsert().
		Model(a).
		ExcludeColumn("id", "created_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// FindByID returns nil, nil when not found.
func (r *Repository) FindByID(ctx context.Context, id string) (*Appellation, error) {
	var a Appellation
	err := r.db.NewSelect().Model(&a).Where("a.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to find appellation", slog.String("id", id), logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &a, nil
}

// FindByIDs returns the appellations keyed by id; missing ids are absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []string) (map[string]*Appellation, error) {
	out := make(map[string]*Appellation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []Appellation
	if err := r.db.NewSelect().Model(&rows).Where("a.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// List returns appellations matching f. The concept filter also matches
// concepts merged into it.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Appellation, int, error) {
	var out []Appellation
	q := r.db.NewSelect().Model(&out)

	if f.TextID != "" {
		q = q.Where("a.occurs_in_id = ?", f.TextID)
	}
	if f.ProjectID != "" {
		q = q.Where("a.project_id = ?", f.ProjectID)
	}
	if f.ConceptID != "" {
		q = q.Where("a.interpretation_id IN (SELECT c.id FROM concepts c WHERE c.id = ? OR c.merged_with_id = ?)",
			f.ConceptID, f.ConceptID)
	}
	if f.UserID != "" {
		q = q.Where("a.created_by = ?", f.UserID)
	}
	if f.Predicate != nil {
		q = q.Where("a.as_predicate = ?", *f.Predicate)
	}

	total, err := q.OrderExpr("a.created_at ASC").Limit(f.Limit).Offset(f.Offset).ScanAndCount(ctx)
	if err != nil {
		r.log.Error("failed to list appellations", logger.Error(err))
		return nil, 0, apperror.ErrDatabase.WithInternal(err)
	}
	return out, total, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model((*Appellation)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}
