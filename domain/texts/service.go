package texts

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500

	// maxPartOfDepth bounds the ancestor walk if the table already holds a cycle.
	maxPartOfDepth = 10_000
)

// Service handles business logic for texts
type Service struct {
	repo *Repository
	log  *slog.Logger
}

// NewService creates a new texts service
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(logger.Scope("texts.svc")),
	}
}

// Create stores an uploaded plain text, tokenizing its content.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Text, error) {
	t := newPlainText(req)
	if userID != "" {
		t.AddedBy = &userID
	}
	if t.PartOfID != nil {
		parent, err := s.repo.FindByID(ctx, *t.PartOfID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, apperror.NewNotFound("text", *t.PartOfID)
		}
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("text created", slog.String("id", t.ID), slog.Int("tokens", TokenCount(t.TokenizedContent)))
	return t, nil
}

func newPlainText(req CreateRequest) *Text {
	docType := DocumentTypePlainText
	uri := strings.TrimSpace(req.URI)
	if uri == "" {
		uri = "urn:vogon:text:" + uuid.NewString()
	}
	public := true
	if req.Public != nil {
		public = *req.Public
	}
	return &Text{
		URI:              uri,
		Title:            strings.TrimSpace(req.Title),
		ContentType:      "text/plain",
		DocumentType:     &docType,
		OriginalContent:  req.Content,
		TokenizedContent: Tokenize(req.Content),
		RepositoryID:     req.RepositoryID,
		PartOfID:         req.PartOfID,
		Public:           public,
	}
}

// Import stores a text fetched from an external repository. A text with the
// same URI is returned unchanged.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*Text, bool, error) {
	existing, err := s.repo.FindByURI(ctx, req.URI)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	t := &Text{
		URI:              req.URI,
		Title:            req.Title,
		ContentType:      req.ContentType,
		DocumentLocation: req.DocumentLocation,
		OriginalContent:  req.Content,
		Public:           req.Public,
	}
	if t.ContentType == "" {
		t.ContentType = "text/plain"
	}
	if req.Content != "" {
		t.TokenizedContent = Tokenize(req.Content)
	}
	if dt := BackfillDocumentType(t.TokenizedContent, ""); dt != "" {
		t.DocumentType = &dt
	}
	if req.RepositoryID != "" {
		t.RepositoryID = &req.RepositoryID
	}
	if req.AddedBy != "" {
		t.AddedBy = &req.AddedBy
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// Get returns a text or a not-found error.
func (s *Service) Get(ctx context.Context, id string) (*Text, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperror.ErrTextNotFound.WithMessage("Text '" + id + "' not found")
	}
	return t, nil
}

// GetReadable returns the text when userID may read it, else a forbidden error.
func (s *Service) GetReadable(ctx context.Context, id, userID string) (*Text, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.UserCanRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewForbidden("You do not have access to this text")
	}
	return t, nil
}

// Projects lists the user's projects containing the text.
func (s *Service) Projects(ctx context.Context, textID, userID string) ([]ProjectRef, error) {
	return s.repo.ProjectsForText(ctx, textID, userID)
}

// List returns a page of texts.
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

	out, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Text{}
	}
	return &ListResponse{Texts: out, Total: total}, nil
}

// Update edits title, visibility and the part_of parent. Only the user who
// added the text or an admin may edit it.
func (s *Service) Update(ctx context.Context, id, userID string, isAdmin bool, req UpdateRequest) (*Text, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(t, userID, isAdmin) {
		return nil, apperror.NewForbidden("Only the uploader can modify this text")
	}

	var columns []string
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperror.NewBadRequest("title cannot be empty")
		}
		t.Title = title
		columns = append(columns, "title")
	}
	if req.Public != nil {
		t.Public = *req.Public
		columns = append(columns, "public")
	}
	if req.PartOfID != nil {
		if err := s.setPartOf(ctx, t, *req.PartOfID); err != nil {
			return nil, err
		}
	}
	if len(columns) == 0 {
		return t, nil
	}
	if err := s.repo.Update(ctx, t, columns...); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) setPartOf(ctx context.Context, t *Text, parentID string) error {
	if parentID == "" {
		if err := s.repo.SetPartOf(ctx, t.ID, nil); err != nil {
			return err
		}
		t.PartOfID = nil
		return nil
	}
	parent, err := s.repo.FindByID(ctx, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return apperror.NewNotFound("text", parentID)
	}
	if err := s.repo.SetPartOf(ctx, t.ID, &parentID); err != nil {
		return err
	}
	t.PartOfID = &parentID
	return nil
}

// checkPartOf rejects making parentID the parent of id when id is parentID
// or one of its ancestors.
func checkPartOf(ctx context.Context, id, parentID string, parentOf func(context.Context, string) (*string, error)) error {
	current := parentID
	for depth := 0; depth < maxPartOfDepth; depth++ {
		if current == id {
			return apperror.ErrPartOfCycle
		}
		next, err := parentOf(ctx, current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		current = *next
	}
	return apperror.ErrPartOfCycle
}

// Children lists the direct parts of a text.
func (s *Service) Children(ctx context.Context, id, userID string) (*ListResponse, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.List(ctx, ListFilter{PartOfID: id, UserID: userID, Limit: maxPageSize})
}

// Delete removes a text and, through cascades, its annotations.
func (s *Service) Delete(ctx context.Context, id, userID string, isAdmin bool) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(t, userID, isAdmin) {
		return apperror.NewForbidden("Only the uploader can delete this text")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("text deleted", slog.String("id", id), slog.String("user_id", userID))
	return nil
}

func canModify(t *Text, userID string, isAdmin bool) bool {
	return isAdmin || (t.AddedBy != nil && *t.AddedBy == userID)
}

// Exists reports whether a text with id exists.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	t, err := s.repo.FindByID(ctx, id)
	return t != nil, err
}
