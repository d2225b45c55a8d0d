package giles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vogonweb/vogon/domain/repositories"
	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/internal/tasks"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
	"github.com/vogonweb/vogon/pkg/tracing"
)

// Enqueuer publishes background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any) (string, error)
}

// Service links users to Giles and imports their uploads as texts.
type Service struct {
	repo         *Repository
	client       *Client
	texts        *texts.Service
	repositories *repositories.Service
	queue        Enqueuer
	cfg          config.GilesConfig
	log          *slog.Logger
}

// NewService creates a new giles service
func NewService(
	repo *Repository,
	client *Client,
	textSvc *texts.Service,
	repoSvc *repositories.Service,
	queue *tasks.Client,
	cfg *config.Config,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		client:       client,
		texts:        textSvc,
		repositories: repoSvc,
		queue:        queue,
		cfg:          cfg.Giles,
		log:          log.With(logger.Scope("giles.svc")),
	}
}

// Status reports whether the user has linked a Giles account.
func (s *Service) Status(ctx context.Context, userID string) (*TokenStatus, error) {
	t, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return &TokenStatus{}, nil
	}
	return &TokenStatus{HasToken: true, CreatedAt: &t.CreatedAt}, nil
}

// ExchangeToken obtains a Giles token for the user and stores it.
func (s *Service) ExchangeToken(ctx context.Context, userID, providerToken string) (*TokenStatus, error) {
	if !s.client.Configured() {
		return nil, apperror.ErrServiceUnavailable.WithMessage("Giles is not configured")
	}
	token, err := s.client.ExchangeToken(ctx, providerToken)
	if err != nil {
		return nil, apperror.ErrTokenExchangeFailed.WithInternal(err)
	}
	t := &Token{UserID: userID, Token: token}
	if err := s.repo.Upsert(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("giles token stored", slog.String("user_id", userID))
	return &TokenStatus{HasToken: true, CreatedAt: &t.CreatedAt}, nil
}

// Uploads lists the user's Giles uploads.
func (s *Service) Uploads(ctx context.Context, userID string) ([]Upload, error) {
	token, err := s.token(ctx, userID)
	if err != nil {
		return nil, err
	}
	uploads, err := s.client.Uploads(ctx, token)
	if err != nil {
		return nil, upstreamError(err)
	}
	return uploads, nil
}

// EnqueueImport schedules the import of one upload and returns the task id.
func (s *Service) EnqueueImport(ctx context.Context, userID, uploadID string) (string, error) {
	if strings.TrimSpace(uploadID) == "" {
		return "", apperror.NewBadRequest("upload id is required")
	}
	if _, err := s.token(ctx, userID); err != nil {
		return "", err
	}
	id, err := s.queue.Enqueue(ctx, TaskImportUpload, ImportPayload{UserID: userID, UploadID: uploadID})
	if err != nil {
		return "", apperror.ErrServiceUnavailable.WithInternal(err)
	}
	s.log.Info("giles import queued",
		slog.String("user_id", userID),
		slog.String("upload_id", uploadID),
		slog.String("task_id", id),
	)
	return id, nil
}

// ImportUpload fetches an upload and stores each document with extracted
// text as a text of the Giles repository. Documents already imported are
// skipped by URI.
func (s *Service) ImportUpload(ctx context.Context, p ImportPayload) (*ImportResult, error) {
	ctx, span := tracing.Start(ctx, "giles.import_upload",
		attribute.String("vogon.giles.upload_id", p.UploadID),
	)
	defer span.End()

	res, err := s.importUpload(ctx, p)
	if res != nil {
		span.SetAttributes(
			attribute.Int("vogon.giles.created", len(res.Created)),
			attribute.Int("vogon.giles.skipped", len(res.Skipped)),
		)
	}
	return res, tracing.RecordError(span, err)
}

func (s *Service) importUpload(ctx context.Context, p ImportPayload) (*ImportResult, error) {
	token, err := s.token(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	upload, err := s.client.Upload(ctx, token, p.UploadID)
	if err != nil {
		return nil, fmt.Errorf("fetch upload %s: %w", p.UploadID, err)
	}
	repo, err := s.repositories.EnsureGiles(ctx, s.cfg.RepositoryName, s.client.BaseURL())
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Created: []string{}, Skipped: []string{}}
	for _, doc := range upload.Documents {
		req := s.importRequest(doc, repo.ID, p.UserID)
		if doc.ExtractedText != nil && doc.ExtractedText.ID != "" {
			content, err := s.client.FileContent(ctx, token, doc.ExtractedText.ID)
			if err != nil {
				return nil, fmt.Errorf("fetch text of document %s: %w", doc.DocumentID, err)
			}
			req.Content = content
		}
		t, created, err := s.texts.Import(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("import document %s: %w", doc.DocumentID, err)
		}
		if created {
			res.Created = append(res.Created, t.ID)
		} else {
			res.Skipped = append(res.Skipped, t.ID)
		}
	}

	s.log.Info("giles upload imported",
		slog.String("upload_id", p.UploadID),
		slog.Int("created", len(res.Created)),
		slog.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func (s *Service) importRequest(doc Document, repositoryID, userID string) texts.ImportRequest {
	title := doc.UploadedFile.Filename
	if title == "" {
		title = doc.DocumentID
	}
	return texts.ImportRequest{
		Title:            title,
		URI:              documentURI(s.client.BaseURL(), doc.DocumentID),
		ContentType:      "text/plain",
		DocumentLocation: doc.UploadedFile.URL,
		RepositoryID:     repositoryID,
		AddedBy:          userID,
	}
}

func documentURI(base, documentID string) string {
	return base + "/documents/" + documentID
}

func (s *Service) token(ctx context.Context, userID string) (string, error) {
	if !s.client.Configured() {
		return "", apperror.ErrServiceUnavailable.WithMessage("Giles is not configured")
	}
	t, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", apperror.ErrNotFound.WithMessage("No Giles token for this user")
	}
	return t.Token, nil
}

// upstreamError maps Giles failures onto API errors. An expired token
// surfaces as unauthorized so the client can re-link the account.
func upstreamError(err error) error {
	var se *StatusError
	if errors.As(err, &se) && (se.Status == 401 || se.Status == 403) {
		return apperror.ErrUnauthorized.WithMessage("Giles rejected the stored token").WithInternal(err)
	}
	return apperror.ErrServiceUnavailable.WithMessage("Giles request failed").WithInternal(err)
}
