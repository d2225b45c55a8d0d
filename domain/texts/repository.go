package texts

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/vogonweb/vogon/internal/database"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

// Repository handles database operations for texts
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new texts repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("texts.repo")),
	}
}

func (r *Repository) Create(ctx context.Context, t *Text) error {
	_, err := r.db.NewInsert().
		Model(t).
		ExcludeColumn("id", "created_at", "updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// FindByID returns nil, nil when not found.
func (r *Repository) FindByID(ctx context.Context, id string) (*Text, error) {
	var t Text
	err := r.db.NewSelect().Model(&t).Where("t.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to find text", slog.String("id", id), logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &t, nil
}

// FindByURI returns nil, nil when not found.
func (r *Repository) FindByURI(ctx context.Context, uri string) (*Text, error) {
	var t Text
	err := r.db.NewSelect().Model(&t).Where("t.uri = ?", uri).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &t, nil
}

// ParentOf returns the part_of id of a text, nil for roots.
func (r *Repository) ParentOf(ctx context.Context, id string) (*string, error) {
	var parent *string
	err := r.db.NewSelect().
		Model((*Text)(nil)).
		Column("part_of_id").
		Where("id = ?", id).
		Scan(ctx, &parent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return parent, nil
}

// List returns texts matching f. Content columns are not loaded.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Text, int, error) {
	var out []Text
	q := r.db.NewSelect().
		Model(&out).
		ExcludeColumn("tokenized_content", "original_content")

	if f.RepositoryID != "" {
		q = q.Where("t.repository_id = ?", f.RepositoryID)
	}
	if f.PartOfID != "" {
		q = q.Where("t.part_of_id = ?", f.PartOfID)
	}
	if f.ProjectID != "" {
		q = q.Where("EXISTS (SELECT 1 FROM project_texts pt WHERE pt.text_id = t.id AND pt.project_id = ?)", f.ProjectID)
	}
	if f.Search != "" {
		q = q.Where("t.title ILIKE ?", "%"+f.Search+"%")
	}
	if f.UserID != "" {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("t.public").
				WhereOr("t.added_by = ?", f.UserID).
				WhereOr(projectMemberExists, f.UserID, f.UserID)
		})
	}

	total, err := q.OrderExpr("t.created_at DESC").Limit(f.Limit).Offset(f.Offset).ScanAndCount(ctx)
	if err != nil {
		r.log.Error("failed to list texts", logger.Error(err))
		return nil, 0, apperror.ErrDatabase.WithInternal(err)
	}
	return out, total, nil
}

// projectMemberExists matches texts in a project the user owns or participates in.
const projectMemberExists = `EXISTS (
	SELECT 1 FROM project_texts pt
	JOIN projects p ON p.id = pt.project_id
	LEFT JOIN project_participants pp ON pp.project_id = p.id AND pp.user_id = ?
	WHERE pt.text_id = t.id AND (p.owner_id = ? OR pp.user_id IS NOT NULL))`

// UserCanRead reports whether the text is public, added by the user, or in
// one of the user's projects.
func (r *Repository) UserCanRead(ctx context.Context, textID, userID string) (bool, error) {
	ok, err := r.db.NewSelect().
		Model((*Text)(nil)).
		Where("t.id = ?", textID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("t.public").
				WhereOr("t.added_by = ?", userID).
				WhereOr(projectMemberExists, userID, userID)
		}).
		Exists(ctx)
	if err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	return ok, nil
}

// ProjectsForText lists (id, name) of the user's projects containing the text.
func (r *Repository) ProjectsForText(ctx context.Context, textID, userID string) ([]ProjectRef, error) {
	var out []ProjectRef
	err := r.db.NewSelect().
		TableExpr("projects AS p").
		ColumnExpr("p.id, p.name").
		Join("JOIN project_texts AS pt ON pt.project_id = p.id").
		Join("LEFT JOIN project_participants AS pp ON pp.project_id = p.id AND pp.user_id = ?", userID).
		Where("pt.text_id = ?", textID).
		Where("p.owner_id = ? OR pp.user_id IS NOT NULL", userID).
		OrderExpr("p.name ASC").
		Scan(ctx, &out)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, t *Text, columns ...string) error {
	t.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().Model(t).Column(append(columns, "updated_at")...).WherePK().Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// partOfLock serialises part_of changes so the ancestor check sees every
// committed parent.
const partOfLock = "texts.part_of"

// SetPartOf makes parentID the parent of id, or a root when parentID is nil.
// The ancestor walk and the write share one locked transaction.
func (r *Repository) SetPartOf(ctx context.Context, id string, parentID *string) error {
	return database.WithAdvisoryLock(ctx, r.db, partOfLock, func(tx bun.IDB) error {
		if parentID != nil {
			txRepo := &Repository{db: tx, log: r.log}
			if err := checkPartOf(ctx, id, *parentID, txRepo.ParentOf); err != nil {
				return err
			}
		}
		_, err := tx.NewUpdate().
			Model((*Text)(nil)).
			Set("part_of_id = ?", parentID).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return apperror.FromDB(err)
		}
		return nil
	})
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model((*Text)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}
