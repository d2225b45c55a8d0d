package templates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vogonweb/vogon/domain/concepts"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

// Service handles business logic for relation templates
type Service struct {
	repo     *Repository
	concepts *concepts.Service
	validate *validator.Validate
	log      *slog.Logger
}

// NewService creates a new templates service
func NewService(repo *Repository, conceptSvc *concepts.Service, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		concepts: conceptSvc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.With(logger.Scope("templates.svc")),
	}
}

// Create validates and stores a template with its parts.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Template, error) {
	t, err := s.build(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("template created", slog.String("id", t.ID), slog.String("name", t.Name), slog.Int("parts", len(t.Parts)))
	return t, nil
}

// Import creates every template of a YAML document, all or nothing.
func (s *Service) Import(ctx context.Context, userID string, doc []byte) (*ImportResponse, error) {
	var in ImportDocument
	if err := yaml.Unmarshal(doc, &in); err != nil {
		return nil, apperror.NewBadRequest("Invalid YAML document").WithInternal(err)
	}
	if err := s.validate.Struct(&in); err != nil {
		return nil, apperror.ErrValidation.WithMessage("Invalid template document").WithInternal(err)
	}

	built := make([]*Template, 0, len(in.Templates))
	for i, req := range in.Templates {
		t, err := s.build(ctx, userID, req)
		if err != nil {
			var appErr *apperror.Error
			if errors.As(err, &appErr) {
				return nil, appErr.WithMessage(fmt.Sprintf("templates[%d] %q: %s", i, req.Name, appErr.Message))
			}
			return nil, err
		}
		built = append(built, t)
	}
	if err := s.repo.CreateAll(ctx, built); err != nil {
		return nil, err
	}

	out := make([]Template, len(built))
	for i, t := range built {
		out[i] = *t
	}
	s.log.Info("templates imported", slog.Int("count", len(out)))
	return &ImportResponse{Created: out}, nil
}

// build resolves type and concept references and validates the result.
func (s *Service) build(ctx context.Context, userID string, req CreateRequest) (*Template, error) {
	terminal, err := ParseTerminalNodes(req.TerminalNodes)
	if err != nil {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}
	if _, err := ParseExpression(req.Expression); err != nil {
		return nil, apperror.ErrValidation.WithMessage("Invalid expression").WithInternal(err)
	}

	t := &Template{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Expression:    req.Expression,
		TerminalNodes: joinRefs(terminal),
	}
	if userID != "" {
		t.CreatedBy = &userID
	}
	for _, pr := range req.Parts {
		p := &Part{InternalID: pr.InternalID}
		for role, nr := range map[string]NodeRequest{
			RoleSource:    pr.Source,
			RolePredicate: pr.Predicate,
			RoleObject:    pr.Object,
		} {
			n, err := s.node(ctx, nr)
			if err != nil {
				return nil, err
			}
			*p.Node(role) = n
		}
		t.Parts = append(t.Parts, p)
	}

	if err := validateParts(t.Parts, terminal); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) node(ctx context.Context, req NodeRequest) (Node, error) {
	n := Node{
		NodeType:    strings.ToUpper(strings.TrimSpace(req.NodeType)),
		Label:       req.Label,
		PartID:      req.Part,
		Description: req.Description,
	}
	if ref := strings.TrimSpace(req.Type); ref != "" {
		ct, err := s.concepts.ResolveType(ctx, ref)
		if err != nil {
			return Node{}, err
		}
		n.TypeID = &ct.ID
	}
	if ref := strings.TrimSpace(req.Concept); ref != "" {
		c, err := s.concepts.Resolve(ctx, ref)
		if err != nil {
			return Node{}, err
		}
		n.ConceptID = &c.ID
		if n.Label == "" {
			n.Label = c.Label
		}
	}
	return n, nil
}

func joinRefs(refs []Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Get returns a template with its parts or a not-found error.
func (s *Service) Get(ctx context.Context, id string) (*Template, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperror.NewNotFound("template", id)
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, search string) ([]Template, error) {
	return s.repo.List(ctx, strings.TrimSpace(search))
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
