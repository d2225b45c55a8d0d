package relations

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/vogonweb/vogon/domain/appellations"
	"github.com/vogonweb/vogon/domain/concepts"
	"github.com/vogonweb/vogon/domain/projects"
	"github.com/vogonweb/vogon/domain/templates"
	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/internal/tasks"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Enqueuer publishes background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any) (string, error)
}

// Service handles business logic for relation sets
type Service struct {
	repo         *Repository
	templates    *templates.Service
	appellations *appellations.Service
	concepts     *concepts.Service
	texts        *texts.Service
	projects     *projects.Service
	queue        Enqueuer
	cfg          config.RelationsConfig
	log          *slog.Logger
	now          func() time.Time
}

// NewService creates a new relations service
func NewService(
	repo *Repository,
	templateSvc *templates.Service,
	appellationSvc *appellations.Service,
	conceptSvc *concepts.Service,
	textSvc *texts.Service,
	projectSvc *projects.Service,
	queue *tasks.Client,
	cfg *config.Config,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		templates:    templateSvc,
		appellations: appellationSvc,
		concepts:     conceptSvc,
		texts:        textSvc,
		projects:     projectSvc,
		queue:        queue,
		cfg:          cfg.Relations,
		log:          log.With(logger.Scope("relations.svc")),
		now:          time.Now,
	}
}

// Instantiate builds a relation set from a template and the appellations the
// user picked for its open fields, then schedules its representation.
func (s *Service) Instantiate(ctx context.Context, templateID, userID string, req InstantiateRequest) (*RelationSet, error) {
	t, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if _, err := s.texts.GetReadable(ctx, req.OccursIn, userID); err != nil {
		return nil, err
	}
	var projectID *string
	if req.ProjectID != nil && *req.ProjectID != "" {
		if err := s.projects.RequireMember(ctx, *req.ProjectID, userID); err != nil {
			return nil, err
		}
		projectID = req.ProjectID
	}
	if missing := templates.MissingFields(t.Parts, req.Fields); len(missing) > 0 {
		return nil, apperror.ErrIncompleteTemplate.WithDetails(map[string]any{"missing": missing})
	}

	picked, err := s.appellations.GetMany(ctx, fieldAppellationIDs(t.Parts, req.Fields))
	if err != nil {
		return nil, err
	}
	predicates, err := s.predicateConcepts(ctx, t.Parts)
	if err != nil {
		return nil, err
	}

	plans, err := plan(t, planContext{
		TextID:       req.OccursIn,
		ProjectID:    projectID,
		UserID:       userID,
		Fields:       req.Fields,
		Appellations: picked,
		Predicates:   predicates,
	})
	if err != nil {
		return nil, err
	}

	set := &RelationSet{
		TemplateID: &t.ID,
		OccursInID: req.OccursIn,
		ProjectID:  projectID,
		Status:     StatusPending,
	}
	if userID != "" {
		set.CreatedBy = &userID
	}
	if err := s.repo.CreateSet(ctx, set, plans); err != nil {
		return nil, err
	}
	set.TerminalNodes = []string{}
	s.log.Info("relation set created",
		slog.String("id", set.ID),
		slog.String("template_id", t.ID),
		slog.Int("relations", len(set.Relations)),
	)

	s.scheduleRefresh(ctx, set.ID)
	return set, nil
}

// fieldAppellationIDs lists the appellation ids given for open fields.
func fieldAppellationIDs(parts []*templates.Part, fields map[string]string) []string {
	var ids []string
	seen := map[string]bool{}
	for _, ref := range templates.OpenFields(parts) {
		id := strings.TrimSpace(fields[ref.String()])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// predicateConcepts resolves the concepts used by is/has parts.
func (s *Service) predicateConcepts(ctx context.Context, parts []*templates.Part) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range parts {
		nodeType := p.Predicate.NodeType
		if _, done := out[nodeType]; done {
			continue
		}
		var uri, label string
		switch nodeType {
		case templates.NodeIs:
			uri, label = s.cfg.IsConceptURI, "be"
		case templates.NodeHas:
			uri, label = s.cfg.HasConceptURI, "have"
		default:
			continue
		}
		c, err := s.concepts.Ensure(ctx, uri, label)
		if err != nil {
			return nil, err
		}
		out[nodeType] = c.ID
	}
	return out, nil
}

// scheduleRefresh enqueues the representation task. A failure leaves the set
// pending for the scheduler to pick up.
func (s *Service) scheduleRefresh(ctx context.Context, id string) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.Enqueue(ctx, TaskRefreshRepresentation, RefreshPayload{RelationSetID: id}); err != nil {
		s.log.Warn("failed to enqueue representation refresh", slog.String("id", id), logger.Error(err))
	}
}

// Refresh recomputes the representation and terminal nodes of a set.
func (s *Service) Refresh(ctx context.Context, id string) error {
	set, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if set == nil {
		s.log.Debug("relation set gone, skipping refresh", slog.String("id", id))
		return nil
	}

	var t *templates.Template
	if set.TemplateID != nil {
		if t, err = s.templates.Get(ctx, *set.TemplateID); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return err
		}
	}

	labels, err := s.labels(ctx, set.Relations)
	if err != nil {
		return err
	}
	repr, terminal, err := describe(t, set.Relations, labels)
	if err != nil {
		return err
	}
	if err := s.repo.SaveRepresentation(ctx, id, repr, terminal); err != nil {
		return err
	}
	s.log.Info("relation set representation refreshed",
		slog.String("id", id),
		slog.Int("terminal_nodes", len(terminal)),
	)
	return nil
}

// labels resolves every appellation of rels to the label and id of its
// canonical concept.
func (s *Service) labels(ctx context.Context, rels []*Relation) (map[string]appellationLabel, error) {
	var ids []string
	for _, r := range rels {
		ids = append(ids, r.AppellationIDs()...)
	}
	apps, err := s.appellations.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[string]appellationLabel, len(apps))
	canonical := map[string]*concepts.Concept{}
	for id, a := range apps {
		c, ok := canonical[a.InterpretationID]
		if !ok {
			if c, err = s.concepts.Canonical(ctx, a.InterpretationID); err != nil {
				return nil, err
			}
			canonical[a.InterpretationID] = c
		}
		label := c.Label
		if a.ControllingVerb != nil {
			label = appellations.VerbDisplay(*a.ControllingVerb)
		}
		if label == "" {
			label = a.StringRep
		}
		out[id] = appellationLabel{Label: label, ConceptID: c.ID}
	}
	return out, nil
}

// Get returns a set or a not-found error.
func (s *Service) Get(ctx context.Context, id string) (*RelationSet, error) {
	set, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, apperror.NewNotFound("relation set", id)
	}
	return set, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) (*ListResponse, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = defaultPageSize
	case f.Limit > maxPageSize:
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	out, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []RelationSet{}
	}
	for i := range out {
		out[i].TerminalNodes = []string{}
	}
	return &ListResponse{RelationSets: out, Total: total}, nil
}

// Submit marks a ready set as submitted. Only its creator or an admin may.
func (s *Service) Submit(ctx context.Context, id, userID string, isAdmin bool) (*RelationSet, error) {
	set, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(set, userID, isAdmin) {
		return nil, apperror.NewForbidden("Only the creator can submit this relation set")
	}
	if set.Status != StatusReady {
		return nil, apperror.ErrConflict.WithMessage("Relation set is " + set.Status + ", only ready sets can be submitted")
	}

	ok, err := s.repo.MarkSubmitted(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrConflict.WithMessage("Relation set changed status concurrently")
	}
	return s.Get(ctx, id)
}

// Delete removes a set. Submitted sets are kept.
func (s *Service) Delete(ctx context.Context, id, userID string, isAdmin bool) error {
	set, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(set, userID, isAdmin) {
		return apperror.NewForbidden("Only the creator can delete this relation set")
	}
	if set.Status == StatusSubmitted && !isAdmin {
		return apperror.ErrConflict.WithMessage("Submitted relation sets cannot be deleted")
	}
	return s.repo.Delete(ctx, id)
}

func canModify(set *RelationSet, userID string, isAdmin bool) bool {
	return isAdmin || (set.CreatedBy != nil && *set.CreatedBy == userID)
}

// RequeueStale re-enqueues the refresh of sets pending for longer than age.
func (s *Service) RequeueStale(ctx context.Context, age time.Duration, limit int) (int, error) {
	ids, err := s.repo.StalePending(ctx, s.now().Add(-age), limit)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := s.queue.Enqueue(ctx, TaskRefreshRepresentation, RefreshPayload{RelationSetID: id}); err != nil {
			return 0, err
		}
	}
	if err := s.repo.Touch(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
