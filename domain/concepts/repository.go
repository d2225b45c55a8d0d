package concepts

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

// Repository handles database operations for concepts and concept types
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new concepts repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("concepts.repo")),
	}
}

func (r *Repository) CreateType(ctx context.Context, t *ConceptType) error {
	_, err := r.db.NewInsert().
		Model(t).
		ExcludeColumn("id", "created_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

func (r *Repository) ListTypes(ctx context.Context) ([]ConceptType, error) {
	out := []ConceptType{}
	if err := r.db.NewSelect().Model(&out).OrderExpr("ct.label ASC").Scan(ctx); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

// FindTypeByID returns nil, nil when not found.
func (r *Repository) FindTypeByID(ctx context.Context, id string) (*ConceptType, error) {
	var t ConceptType
	err := r.db.NewSelect().Model(&t).Where("ct.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &t, nil
}

// FindTypeByURI returns nil, nil when not found.
func (r *Repository) FindTypeByURI(ctx context.Context, uri string) (*ConceptType, error) {
	var t ConceptType
	err := r.db.NewSelect().Model(&t).Where("ct.uri = ?", uri).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &t, nil
}

func (r *Repository) Create(ctx context.Context, c *Concept) error {
	_, err := r.db.NewInsert().
		Model(c).
		ExcludeColumn("id", "created_at", "updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// FindByID returns nil, nil when not found.
func (r *Repository) FindByID(ctx context.Context, id string) (*Concept, error) {
	var c Concept
	err := r.db.NewSelect().Model(&c).Where("c.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to find concept", slog.String("id", id), logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &c, nil
}

// FindByURI returns nil, nil when not found.
func (r *Repository) FindByURI(ctx context.Context, uri string) (*Concept, error) {
	var c Concept
	err := r.db.NewSelect().Model(&c).Where("c.uri = ?", uri).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &c, nil
}

// MergedWith returns the merged_with id of a concept. A missing concept is
// treated as canonical.
func (r *Repository) MergedWith(ctx context.Context, id string) (*string, error) {
	var next *string
	err := r.db.NewSelect().
		Model((*Concept)(nil)).
		Column("merged_with_id").
		Where("id = ?", id).
		Scan(ctx, &next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return next, nil
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Concept, int, error) {
	var out []Concept
	q := r.db.NewSelect().Model(&out)

	if f.State != "" {
		q = q.Where("c.concept_state = ?", f.State)
	}
	if f.TypeID != "" {
		q = q.Where("c.type_id = ?", f.TypeID)
	}
	if f.Search != "" {
		q = q.Where("lower(c.label) LIKE lower(?)", "%"+f.Search+"%")
	}

	total, err := q.OrderExpr("c.label ASC").Limit(f.Limit).Offset(f.Offset).ScanAndCount(ctx)
	if err != nil {
		r.log.Error("failed to list concepts", logger.Error(err))
		return nil, 0, apperror.ErrDatabase.WithInternal(err)
	}
	return out, total, nil
}

func (r *Repository) Update(ctx context.Context, c *Concept, columns ...string) error {
	c.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().Model(c).Column(append(columns, "updated_at")...).WherePK().Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model((*Concept)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// mergeLock serialises merges so two of them cannot each pass the cycle
// check against the other's chain.
const mergeLock = "concepts.merge"

// Merge points source at the canonical concept of target and re-points every
// concept merged into source. The chain walk and the writes share one locked
// transaction. It returns the canonical id and the number of re-pointed
// concepts, source excluded.
func (r *Repository) Merge(ctx context.Context, sourceID, targetID string) (string, int, error) {
	var (
		canonicalID string
		repointed   int
	)
	err := database.WithAdvisoryLock(ctx, r.db, mergeLock, func(tx bun.IDB) error {
		txRepo := &Repository{db: tx, log: r.log}
		var err error
		canonicalID, err = mergeTarget(ctx, sourceID, targetID, txRepo.MergedWith)
		if err != nil {
			return err
		}

		now := time.Now()
		if _, err := tx.NewUpdate().
			Model((*Concept)(nil)).
			Set("merged_with_id = ?", canonicalID).
			Set("updated_at = ?", now).
			Where("id = ?", sourceID).
			Exec(ctx); err != nil {
			return apperror.FromDB(err)
		}

		res, err := tx.NewUpdate().
			Model((*Concept)(nil)).
			Set("merged_with_id = ?", canonicalID).
			Set("updated_at = ?", now).
			Where("merged_with_id = ?", sourceID).
			Exec(ctx)
		if err != nil {
			return apperror.FromDB(err)
		}
		n, _ := res.RowsAffected()
		repointed = int(n)
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return canonicalID, repointed, nil
}
