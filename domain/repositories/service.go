package repositories

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

// Service handles business logic for text repositories
type Service struct {
	store *Store
	log   *slog.Logger
}

// NewService creates a new repositories service
func NewService(store *Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log.With(logger.Scope("repositories.svc"))}
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*TextRepository, error) {
	r, err := newRepository(req)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		r.CreatedBy = &userID
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("repository created", slog.String("id", r.ID), slog.String("manager", r.Manager))
	return r, nil
}

func newRepository(req CreateRequest) (*TextRepository, error) {
	r := &TextRepository{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Manager:       req.Manager,
		Endpoint:      req.Endpoint,
		Configuration: req.Configuration,
	}
	if r.Name == "" {
		return nil, apperror.NewBadRequest("name is required")
	}
	if r.Manager == "" {
		r.Manager = ManagerLocal
	}
	if len(r.Configuration) == 0 {
		r.Configuration = json.RawMessage("{}")
	} else if !json.Valid(r.Configuration) {
		return nil, apperror.NewBadRequest("configuration must be a JSON object")
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (*TextRepository, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperror.NewNotFound("repository", id)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context) ([]TextRepository, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []TextRepository{}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*TextRepository, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var columns []string
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.NewBadRequest("name cannot be empty")
		}
		r.Name = name
		columns = append(columns, "name")
	}
	if req.Description != nil {
		r.Description = *req.Description
		columns = append(columns, "description")
	}
	if req.Endpoint != nil {
		r.Endpoint = *req.Endpoint
		columns = append(columns, "endpoint")
	}
	if len(req.Configuration) > 0 {
		if !json.Valid(req.Configuration) {
			return nil, apperror.NewBadRequest("configuration must be a JSON object")
		}
		r.Configuration = req.Configuration
		columns = append(columns, "configuration")
	}
	if len(columns) == 0 {
		return r, nil
	}
	if err := s.store.Update(ctx, r, columns...); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewNotFound("repository", id)
	}
	return nil
}

// EnsureGiles returns the repository imported Giles texts belong to,
// creating it on first use.
func (s *Service) EnsureGiles(ctx context.Context, name, endpoint string) (*TextRepository, error) {
	r, err := s.store.FindByName(ctx, name, ManagerGiles)
	if err != nil || r != nil {
		return r, err
	}
	r = &TextRepository{
		Name:          name,
		Manager:       ManagerGiles,
		Endpoint:      endpoint,
		Configuration: json.RawMessage("{}"),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("giles repository created", slog.String("id", r.ID))
	return r, nil
}
