package projects

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

// Repository handles database operations for projects
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new project repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("projects.repo")),
	}
}

func (r *Repository) Create(ctx context.Context, p *Project) error {
	_, err := r.db.NewInsert().
		Model(p).
		ExcludeColumn("id", "created_at", "updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// GetByID returns nil, nil when not found.
func (r *Repository) GetByID(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := r.db.NewSelect().Model(&p).Where("p.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get project", slog.String("id", id), logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &p, nil
}

// List returns projects the user owns or participates in; all projects when userID is empty.
func (r *Repository) List(ctx context.Context, userID string, limit int) ([]Project, error) {
	var out []Project
	q := r.db.NewSelect().Model(&out)
	if userID != "" {
		q = q.Where("p.owner_id = ? OR EXISTS (SELECT 1 FROM project_participants pp WHERE pp.project_id = p.id AND pp.user_id = ?)", userID, userID)
	}
	if err := q.OrderExpr("p.name ASC").Limit(limit).Scan(ctx); err != nil {
		r.log.Error("failed to list projects", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, p *Project, columns ...string) error {
	p.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().Model(p).Column(append(columns, "updated_at")...).WherePK().Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.NewDelete().Model((*Project)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// IsMember reports whether the user owns or participates in the project.
func (r *Repository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	ok, err := r.db.NewSelect().
		Model((*Project)(nil)).
		Where("p.id = ?", projectID).
		Where("p.owner_id = ? OR EXISTS (SELECT 1 FROM project_participants pp WHERE pp.project_id = p.id AND pp.user_id = ?)", userID, userID).
		Exists(ctx)
	if err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	return ok, nil
}

// AddText is idempotent.
func (r *Repository) AddText(ctx context.Context, projectID, textID string) error {
	_, err := r.db.NewInsert().
		Model(&ProjectText{ProjectID: projectID, TextID: textID}).
		ExcludeColumn("added_at").
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

func (r *Repository) RemoveText(ctx context.Context, projectID, textID string) error {
	_, err := r.db.NewDelete().
		Model((*ProjectText)(nil)).
		Where("project_id = ?", projectID).
		Where("text_id = ?", textID).
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// AddParticipant is idempotent.
func (r *Repository) AddParticipant(ctx context.Context, projectID, userID string) error {
	_, err := r.db.NewInsert().
		Model(&ProjectParticipant{ProjectID: projectID, UserID: userID}).
		ExcludeColumn("added_at").
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

func (r *Repository) RemoveParticipant(ctx context.Context, projectID, userID string) error {
	_, err := r.db.NewDelete().
		Model((*ProjectParticipant)(nil)).
		Where("project_id = ?", projectID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// Participants returns participant user ids keyed by project id.
func (r *Repository) Participants(ctx context.Context, projectIDs ...string) (map[string][]string, error) {
	out := make(map[string][]string, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	var rows []ProjectParticipant
	err := r.db.NewSelect().
		Model(&rows).
		Where("pp.project_id IN (?)", bun.In(projectIDs)).
		OrderExpr("pp.added_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	for _, row := range rows {
		out[row.ProjectID] = append(out[row.ProjectID], row.UserID)
	}
	return out, nil
}

// TextCounts returns the number of texts keyed by project id.
func (r *Repository) TextCounts(ctx context.Context, projectIDs ...string) (map[string]int, error) {
	out := make(map[string]int, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ProjectID string `bun:"project_id"`
		Count     int    `bun:"count"`
	}
	err := r.db.NewSelect().
		Model((*ProjectText)(nil)).
		ColumnExpr("pt.project_id, count(*) AS count").
		Where("pt.project_id IN (?)", bun.In(projectIDs)).
		GroupExpr("pt.project_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	for _, row := range rows {
		out[row.ProjectID] = row.Count
	}
	return out, nil
}
