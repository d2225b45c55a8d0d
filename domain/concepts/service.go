package concepts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Service handles business logic for concepts
type Service struct {
	repo *Repository
	log  *slog.Logger
}

// NewService creates a new concepts service
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(logger.Scope("concepts.svc")),
	}
}

// CreateType stores a concept type. A duplicate URI is a conflict.
func (s *Service) CreateType(ctx context.Context, req CreateTypeRequest) (*ConceptType, error) {
	t := &ConceptType{
		URI:         strings.TrimSpace(req.URI),
		Label:       strings.TrimSpace(req.Label),
		Description: req.Description,
	}
	if err := s.repo.CreateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTypes returns every concept type ordered by label.
func (s *Service) ListTypes(ctx context.Context) ([]ConceptType, error) {
	return s.repo.ListTypes(ctx)
}

// GetType returns a concept type or a not-found error.
func (s *Service) GetType(ctx context.Context, id string) (*ConceptType, error) {
	t, err := s.repo.FindTypeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperror.NewNotFound("concept type", id)
	}
	return t, nil
}

// ResolveType finds a concept type by id or URI.
func (s *Service) ResolveType(ctx context.Context, ref string) (*ConceptType, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return s.GetType(ctx, ref)
	}
	t, err := s.repo.FindTypeByURI(ctx, ref)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperror.NewNotFound("concept type", ref)
	}
	return t, nil
}

// Create stores a new concept in the Pending state.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Concept, error) {
	if req.TypeID != nil {
		if _, err := s.GetType(ctx, *req.TypeID); err != nil {
			return nil, err
		}
	}
	c := newConcept(req)
	if userID != "" {
		c.CreatedBy = &userID
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("concept created", slog.String("id", c.ID), slog.String("label", c.Label))
	return c, nil
}

func newConcept(req CreateRequest) *Concept {
	uri := strings.TrimSpace(req.URI)
	if uri == "" {
		uri = "urn:vogon:concept:" + uuid.NewString()
	}
	return &Concept{
		URI:         uri,
		Label:       strings.TrimSpace(req.Label),
		Description: req.Description,
		TypeID:      req.TypeID,
		State:       StatePending,
	}
}

// Get returns a concept or a not-found error.
func (s *Service) Get(ctx context.Context, id string) (*Concept, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NewNotFound("concept", id)
	}
	return c, nil
}

// Resolve finds a concept by id or URI.
func (s *Service) Resolve(ctx context.Context, ref string) (*Concept, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return s.Get(ctx, ref)
	}
	c, err := s.repo.FindByURI(ctx, ref)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NewNotFound("concept", ref)
	}
	return c, nil
}

// Ensure returns the concept with uri, creating it as Approved when missing.
// Built-in predicate concepts are created this way.
func (s *Service) Ensure(ctx context.Context, uri, label string) (*Concept, error) {
	c, err := s.repo.FindByURI(ctx, uri)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}
	c = &Concept{URI: uri, Label: label, State: StateApproved}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return s.Resolve(ctx, uri)
		}
		return nil, err
	}
	s.log.Info("concept ensured", slog.String("uri", uri), slog.String("id", c.ID))
	return c, nil
}

// Detail returns a concept together with its canonical id.
func (s *Service) Detail(ctx context.Context, id string) (*ConceptDetail, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	canonicalID := c.ID
	if c.MergedWithID != nil {
		if canonicalID, err = canonical(ctx, *c.MergedWithID, s.repo.MergedWith); err != nil {
			return nil, err
		}
	}
	return &ConceptDetail{Concept: c, CanonicalID: canonicalID}, nil
}

// Canonical returns the concept that id was (transitively) merged into, or
// the concept itself.
func (s *Service) Canonical(ctx context.Context, id string) (*Concept, error) {
	canonicalID, err := canonical(ctx, id, s.repo.MergedWith)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, canonicalID)
}

// List pages through concepts matching f. Limit is clamped to maxPageSize and
// an unknown state is a bad request.
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
	f.Search = strings.TrimSpace(f.Search)
	if f.State != "" && !validState(f.State) {
		return nil, apperror.NewBadRequest("unknown concept state " + f.State)
	}

	out, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Concept{}
	}
	return &ListResponse{Concepts: out, Total: total}, nil
}

func validState(state string) bool {
	switch state {
	case StatePending, StateRejected, StateApproved, StateResolved:
		return true
	}
	return false
}

// Update applies the non-nil fields of req. An empty request returns the
// concept unchanged.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Concept, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var columns []string
	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label == "" {
			return nil, apperror.NewBadRequest("label cannot be empty")
		}
		c.Label = label
		columns = append(columns, "label")
	}
	if req.Description != nil {
		c.Description = *req.Description
		columns = append(columns, "description")
	}
	if req.TypeID != nil {
		if _, err := s.GetType(ctx, *req.TypeID); err != nil {
			return nil, err
		}
		c.TypeID = req.TypeID
		columns = append(columns, "type_id")
	}
	if len(columns) == 0 {
		return c, nil
	}
	if err := s.repo.Update(ctx, c, columns...); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a concept. Concepts still referenced by appellations are
// kept by the foreign key and reported as a bad request.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Transition applies a curator action. Merged concepts cannot change state;
// curate their canonical concept instead.
func (s *Service) Transition(ctx context.Context, id string, action Action, authority string) (*Concept, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.MergedWithID != nil {
		return nil, apperror.ErrInvalidStateTransition.WithMessage("Concept has been merged into " + *c.MergedWithID)
	}

	next, err := nextState(c.State, action)
	if err != nil {
		return nil, err
	}
	columns := []string{"concept_state"}
	if action == ActionResolve {
		authority = strings.TrimSpace(authority)
		if authority == "" {
			return nil, apperror.ErrValidation.WithMessage("Resolving a concept requires an authority URI")
		}
		c.Authority = authority
		columns = append(columns, "authority")
	}

	from := c.State
	c.State = next
	if err := s.repo.Update(ctx, c, columns...); err != nil {
		return nil, err
	}
	s.log.Info("concept state changed",
		slog.String("id", id),
		slog.String("from", from),
		slog.String("to", next),
	)
	return c, nil
}

// Merge points source at the canonical concept of target. Concepts previously
// merged into source follow it, so chains stay one hop long.
func (s *Service) Merge(ctx context.Context, sourceID, targetID string) (*ConceptDetail, error) {
	source, err := s.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, targetID); err != nil {
		return nil, err
	}

	canonicalID, repointed, err := s.repo.Merge(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}
	s.log.Info("concept merged",
		slog.String("source", sourceID),
		slog.String("canonical", canonicalID),
		slog.Int("repointed", repointed),
	)

	source.MergedWithID = &canonicalID
	return &ConceptDetail{Concept: source, CanonicalID: canonicalID}, nil
}
