package projects

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

const (
	// DefaultLimit is the default number of projects to return
	DefaultLimit = 100
	// MaxLimit is the maximum number of projects to return
	MaxLimit = 500
)

// Service handles business logic for projects
type Service struct {
	repo  *Repository
	texts *texts.Service
	log   *slog.Logger
}

// NewService creates a new project service
func NewService(repo *Repository, textSvc *texts.Service, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		texts: textSvc,
		log:   log.With(logger.Scope("projects.svc")),
	}
}

// List returns the user's projects, or every project when mine is false.
func (s *Service) List(ctx context.Context, userID string, mine bool, limit int) ([]ProjectDTO, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	filter := ""
	if mine {
		filter = userID
	}
	projects, err := s.repo.List(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	return s.toDTOs(ctx, projects)
}

func (s *Service) toDTOs(ctx context.Context, projects []Project) ([]ProjectDTO, error) {
	ids := make([]string, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	participants, err := s.repo.Participants(ctx, ids...)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.TextCounts(ctx, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]ProjectDTO, len(projects))
	for i := range projects {
		dto := projects[i].ToDTO()
		if p := participants[dto.ID]; p != nil {
			dto.Participants = p
		}
		dto.TextCount = counts[dto.ID]
		out[i] = dto
	}
	return out, nil
}

// GetByID returns a project by ID
func (s *Service) GetByID(ctx context.Context, id string) (*ProjectDTO, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	dtos, err := s.toDTOs(ctx, []Project{*p})
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}

func (s *Service) get(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NewNotFound("project", id)
	}
	return p, nil
}

// Create creates a project owned by userID
func (s *Service) Create(ctx context.Context, req CreateProjectRequest, userID string) (*ProjectDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.ErrValidation.WithMessage("Name required").WithDetails(map[string]any{
			"name": []string{"must not be blank"},
		})
	}
	p := &Project{
		Name:        name,
		Description: req.Description,
		QuadrigaID:  normalizeQuadrigaID(req.QuadrigaID),
		OwnerID:     userID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("project created", slog.String("id", p.ID), slog.String("owner_id", userID))
	dto := p.ToDTO()
	return &dto, nil
}

func normalizeQuadrigaID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

// Update edits a project; owner and participants may do so.
func (s *Service) Update(ctx context.Context, id, userID string, req UpdateProjectRequest) (*ProjectDTO, error) {
	p, err := s.requireMember(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	var columns []string
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.ErrValidation.WithMessage("Name cannot be empty")
		}
		p.Name = name
		columns = append(columns, "name")
	}
	if req.Description != nil {
		p.Description = *req.Description
		columns = append(columns, "description")
	}
	if req.QuadrigaID != nil {
		p.QuadrigaID = normalizeQuadrigaID(req.QuadrigaID)
		columns = append(columns, "quadriga_id")
	}
	if len(columns) > 0 {
		if err := s.repo.Update(ctx, p, columns...); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

// Delete removes a project; only the owner may.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	p, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if p.OwnerID != userID {
		return apperror.NewForbidden("Only the project owner can delete it")
	}
	return s.repo.Delete(ctx, id)
}

// AddText adds an existing text to the project.
func (s *Service) AddText(ctx context.Context, id, textID, userID string) error {
	if _, err := s.requireMember(ctx, id, userID); err != nil {
		return err
	}
	if _, err := s.texts.Get(ctx, textID); err != nil {
		return err
	}
	return s.repo.AddText(ctx, id, textID)
}

func (s *Service) RemoveText(ctx context.Context, id, textID, userID string) error {
	if _, err := s.requireMember(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.RemoveText(ctx, id, textID)
}

// AddParticipant is restricted to the owner.
func (s *Service) AddParticipant(ctx context.Context, id, participantID, userID string) error {
	p, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if p.OwnerID != userID {
		return apperror.NewForbidden("Only the project owner can manage participants")
	}
	if participantID == p.OwnerID {
		return apperror.NewBadRequest("The owner is already a member")
	}
	return s.repo.AddParticipant(ctx, id, participantID)
}

// RemoveParticipant is allowed for the owner and for participants leaving.
func (s *Service) RemoveParticipant(ctx context.Context, id, participantID, userID string) error {
	p, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if p.OwnerID != userID && participantID != userID {
		return apperror.NewForbidden("Only the project owner can manage participants")
	}
	return s.repo.RemoveParticipant(ctx, id, participantID)
}

// Texts lists the texts of a project visible to the user.
func (s *Service) Texts(ctx context.Context, id, userID string, limit, offset int) (*texts.ListResponse, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	return s.texts.List(ctx, texts.ListFilter{ProjectID: id, UserID: userID, Limit: limit, Offset: offset})
}

// IsMember reports whether the user owns or participates in the project.
func (s *Service) IsMember(ctx context.Context, id, userID string) (bool, error) {
	return s.repo.IsMember(ctx, id, userID)
}

// RequireMember returns a forbidden error unless the user is a member.
func (s *Service) RequireMember(ctx context.Context, id, userID string) error {
	_, err := s.requireMember(ctx, id, userID)
	return err
}

func (s *Service) requireMember(ctx context.Context, id, userID string) (*Project, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID == userID {
		return p, nil
	}
	ok, err := s.repo.IsMember(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewForbidden("You are not a participant of this project")
	}
	return p, nil
}
