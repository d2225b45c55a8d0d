package relations

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

// Repository handles database operations for relation sets
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new relations repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("relations.repo")),
	}
}

// CreateSet inserts the set, the appellations the plan creates and the
// relations, in plan order, inside one transaction.
func (r *Repository) CreateSet(ctx context.Context, set *RelationSet, plans []relationPlan) error {
	return database.WithTx(ctx, r.db, func(tx bun.IDB) error {
		if _, err := tx.NewInsert().
			Model(set).
			ExcludeColumn("id", "created_at", "updated_at", "submitted_at").
			Returning("*").
			Exec(ctx); err != nil {
			return apperror.FromDB(err)
		}

		byPart := make(map[int]*Relation, len(plans))
		for _, p := range plans {
			rel := &Relation{PartOfID: set.ID}
			part := p.Part
			rel.PartInternalID = &part

			src, srcRel, err := r.resolveField(ctx, tx, p.Source, byPart)
			if err != nil {
				return err
			}
			pred, _, err := r.resolveField(ctx, tx, p.Predicate, byPart)
			if err != nil {
				return err
			}
			obj, objRel, err := r.resolveField(ctx, tx, p.Object, byPart)
			if err != nil {
				return err
			}
			rel.SourceAppellationID, rel.SourceRelationID = src, srcRel
			rel.ObjectAppellationID, rel.ObjectRelationID = obj, objRel
			if pred == nil {
				return apperror.ErrIncompleteTemplate.WithMessage("Predicate must be an appellation")
			}
			rel.PredicateAppellationID = *pred

			if _, err := tx.NewInsert().
				Model(rel).
				ExcludeColumn("id", "created_at").
				Returning("*").
				Exec(ctx); err != nil {
				return apperror.FromDB(err)
			}
			byPart[p.Part] = rel
			set.Relations = append(set.Relations, rel)
		}
		return nil
	})
}

// resolveField returns either an appellation id or a relation id for f,
// inserting a new appellation when the plan asks for one.
func (r *Repository) resolveField(ctx context.Context, tx bun.IDB, f fieldPlan, byPart map[int]*Relation) (*string, *string, error) {
	switch {
	case f.AppellationID != "":
		id := f.AppellationID
		return &id, nil, nil
	case f.New != nil:
		if _, err := tx.NewInsert().
			Model(f.New).
			ExcludeColumn("id", "created_at").
			Returning("*").
			Exec(ctx); err != nil {
			return nil, nil, apperror.FromDB(err)
		}
		id := f.New.ID
		return &id, nil, nil
	case f.Part != nil:
		rel, ok := byPart[*f.Part]
		if !ok {
			return nil, nil, apperror.ErrIncompleteTemplate.WithMessage("Referenced part was not built")
		}
		id := rel.ID
		return nil, &id, nil
	}
	return nil, nil, apperror.ErrIncompleteTemplate
}

// FindByID loads a set with its relations and terminal nodes. Returns nil,
// nil when not found.
func (r *Repository) FindByID(ctx context.Context, id string) (*RelationSet, error) {
	var set RelationSet
	err := r.db.NewSelect().
		Model(&set).
		Relation("Relations", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("rel.part_internal_id ASC NULLS LAST")
		}).
		Where("rs.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to find relation set", slog.String("id", id), logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	terminal, err := r.terminalNodes(ctx, id)
	if err != nil {
		return nil, err
	}
	set.TerminalNodes = terminal
	return &set, nil
}

func (r *Repository) terminalNodes(ctx context.Context, setID string) ([]string, error) {
	out := []string{}
	err := r.db.NewSelect().
		Model((*TerminalNode)(nil)).
		Column("concept_id").
		Where("relation_set_id = ?", setID).
		OrderExpr("concept_id").
		Scan(ctx, &out)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]RelationSet, int, error) {
	var out []RelationSet
	q := r.db.NewSelect().Model(&out)

	if f.TextID != "" {
		q = q.Where("rs.occurs_in_id = ?", f.TextID)
	}
	if f.ProjectID != "" {
		q = q.Where("rs.project_id = ?", f.ProjectID)
	}
	if f.UserID != "" {
		q = q.Where("rs.created_by = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("rs.status = ?", f.Status)
	}

	total, err := q.OrderExpr("rs.created_at DESC").Limit(f.Limit).Offset(f.Offset).ScanAndCount(ctx)
	if err != nil {
		r.log.Error("failed to list relation sets", logger.Error(err))
		return nil, 0, apperror.ErrDatabase.WithInternal(err)
	}
	return out, total, nil
}

// SaveRepresentation stores the computed representation and terminal nodes.
// A pending set becomes ready; a submitted set keeps its status.
func (r *Repository) SaveRepresentation(ctx context.Context, id, representation string, terminal []string) error {
	return database.WithTx(ctx, r.db, func(tx bun.IDB) error {
		if _, err := tx.NewUpdate().
			Model((*RelationSet)(nil)).
			Set("representation = ?", representation).
			Set("status = CASE WHEN status = ? THEN status ELSE ? END", StatusSubmitted, StatusReady).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return apperror.FromDB(err)
		}

		if _, err := tx.NewDelete().
			Model((*TerminalNode)(nil)).
			Where("relation_set_id = ?", id).
			Exec(ctx); err != nil {
			return apperror.FromDB(err)
		}
		if len(terminal) == 0 {
			return nil
		}
		nodes := make([]TerminalNode, len(terminal))
		for i, c := range terminal {
			nodes[i] = TerminalNode{RelationSetID: id, ConceptID: c}
		}
		if _, err := tx.NewInsert().Model(&nodes).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return apperror.FromDB(err)
		}
		return nil
	})
}

// MarkSubmitted moves a ready set to submitted. It reports false when the set
// was not ready.
func (r *Repository) MarkSubmitted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*RelationSet)(nil)).
		Set("status = ?", StatusSubmitted).
		Set("submitted_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", StatusReady).
		Exec(ctx)
	if err != nil {
		return false, apperror.FromDB(err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// StalePending returns ids of sets still pending after olderThan.
func (r *Repository) StalePending(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.db.NewSelect().
		Model((*RelationSet)(nil)).
		Column("id").
		Where("status = ?", StatusPending).
		Where("updated_at < ?", olderThan).
		OrderExpr("updated_at ASC").
		Limit(limit).
		Scan(ctx, &ids)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return ids, nil
}

// Touch bumps updated_at so a re-enqueued set is not picked again at once.
func (r *Repository) Touch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().
		Model((*RelationSet)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

// Delete removes a set; relations and terminal nodes cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model((*RelationSet)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return apperror.FromDB(err)
	}
	return nil
}
