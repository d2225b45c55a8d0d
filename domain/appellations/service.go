package appellations

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/vogonweb/vogon/domain/concepts"
	"github.com/vogonweb/vogon/domain/projects"
	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Service handles business logic for appellations
type Service struct {
	repo     *Repository
	texts    *texts.Service
	concepts *concepts.Service
	projects *projects.Service
	log      *slog.Logger
}

// NewService creates a new appellations service
func NewService(
	repo *Repository,
	textSvc *texts.Service,
	conceptSvc *concepts.Service,
	projectSvc *projects.Service,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		texts:    textSvc,
		concepts: conceptSvc,
		projects: projectSvc,
		log:      log.With(logger.Scope("appellations.svc")),
	}
}

// Create validates and stores an appellation. The text must be readable by
// the user and, when a project is given, the user must be a member.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Appellation, error) {
	a, err := newAppellation(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.texts.GetReadable(ctx, req.OccursIn, userID); err != nil {
		return nil, err
	}
	if _, err := s.concepts.Get(ctx, req.Interpretation); err != nil {
		return nil, err
	}
	if a.ProjectID != nil {
		if err := s.projects.RequireMember(ctx, *a.ProjectID, userID); err != nil {
			return nil, err
		}
	}
	if userID != "" {
		a.CreatedBy = &userID
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	a.decorate()
	s.log.Debug("appellation created",
		slog.String("id", a.ID),
		slog.String("text_id", a.OccursInID),
		slog.String("concept_id", a.InterpretationID),
	)
	return a, nil
}

// newAppellation builds an appellation from a request, checking the fields
// that need no lookups.
func newAppellation(req CreateRequest) (*Appellation, error) {
	verb, err := controllingVerb(req.AsPredicate, req.ControllingVerb)
	if err != nil {
		return nil, err
	}
	if req.StartPos != nil && req.EndPos != nil && *req.StartPos > *req.EndPos {
		return nil, apperror.ErrValidation.WithMessage("startPos must not be after endPos")
	}

	tokens := pq.StringArray{}
	for _, id := range req.TokenIDs {
		if id = strings.TrimSpace(id); id != "" {
			tokens = append(tokens, id)
		}
	}

	a := &Appellation{
		OccursInID:       req.OccursIn,
		InterpretationID: req.Interpretation,
		StringRep:        req.StringRep,
		StartPos:         req.StartPos,
		EndPos:           req.EndPos,
		TokenIDs:         tokens,
		AsPredicate:      req.AsPredicate,
		ControllingVerb:  verb,
	}
	if req.ProjectID != nil && *req.ProjectID != "" {
		a.ProjectID = req.ProjectID
	}
	return a, nil
}

// controllingVerb validates a submitted verb. Empty means none; a verb is only
// allowed on predicate appellations.
func controllingVerb(asPredicate bool, verb string) (*string, error) {
	verb = strings.TrimSpace(verb)
	switch verb {
	case "":
		return nil, nil
	case VerbIs, VerbHas:
	default:
		return nil, apperror.ErrInvalidControllingVerb.WithMessage("Unknown controlling verb " + verb)
	}
	if !asPredicate {
		return nil, apperror.ErrInvalidControllingVerb
	}
	return &verb, nil
}

// NewPredicate builds the predicate appellation a relation template creates
// for its is/has parts.
func NewPredicate(textID, conceptID, verb string, projectID *string, userID string) (*Appellation, error) {
	v, err := controllingVerb(true, verb)
	if err != nil {
		return nil, err
	}
	a := &Appellation{
		OccursInID:       textID,
		InterpretationID: conceptID,
		StringRep:        VerbDisplay(verb),
		TokenIDs:         pq.StringArray{},
		AsPredicate:      true,
		ControllingVerb:  v,
		ProjectID:        projectID,
	}
	if userID != "" {
		a.CreatedBy = &userID
	}
	return a, nil
}

// NewFixed builds the appellation for a template field bound to a fixed concept.
func NewFixed(textID, conceptID, label string, asPredicate bool, projectID *string, userID string) *Appellation {
	a := &Appellation{
		OccursInID:       textID,
		InterpretationID: conceptID,
		StringRep:        label,
		TokenIDs:         pq.StringArray{},
		AsPredicate:      asPredicate,
		ProjectID:        projectID,
	}
	if userID != "" {
		a.CreatedBy = &userID
	}
	return a
}

// Get returns an appellation or a not-found error.
func (s *Service) Get(ctx context.Context, id string) (*Appellation, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperror.NewNotFound("appellation", id)
	}
	a.decorate()
	return a, nil
}

// GetMany returns the appellations keyed by id and fails if any is missing.
func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]*Appellation, error) {
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		a, ok := found[id]
		if !ok {
			return nil, apperror.NewNotFound("appellation", id)
		}
		a.decorate()
	}
	return found, nil
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
		out = []Appellation{}
	}
	for i := range out {
		out[i].decorate()
	}
	return &ListResponse{Appellations: out, Total: total}, nil
}

// Delete removes an appellation; only its creator or an admin may.
func (s *Service) Delete(ctx context.Context, id, userID string, isAdmin bool) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !isAdmin && (a.CreatedBy == nil || *a.CreatedBy != userID) {
		return apperror.NewForbidden("Only the creator can delete this appellation")
	}
	return s.repo.Delete(ctx, id)
}
