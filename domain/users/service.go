package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vogonweb/vogon/internal/storage"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
	"github.com/vogonweb/vogon/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// dummyHash is compared against when the username is unknown so that
// login timing does not reveal which usernames exist.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("vogon-timing"), bcrypt.DefaultCost)

// Service handles business logic for users
type Service struct {
	repo    *Repository
	tokens  *auth.TokenIssuer
	storage *storage.Service
	log     *slog.Logger
}

// NewService creates a new users service
func NewService(repo *Repository, tokens *auth.TokenIssuer, store *storage.Service, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		tokens:  tokens,
		storage: store,
		log:     log.With(logger.Scope("users.svc")),
	}
}

// Register creates an account. Usernames are unique regardless of case.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrConflict.WithMessage("Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.NewInternal("hash password", err)
	}

	u := &User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", slog.String("user_id", u.ID), slog.String("username", u.Username))
	return u, nil
}

// Authenticate checks a username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, apperror.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.tokens.IssueSession(Identity(u))
	if err != nil {
		return nil, apperror.NewInternal("issue session token", err)
	}
	return &LoginResponse{Token: token, ExpiresAt: exp, User: u}, nil
}

// Identity converts a user into the token subject.
func Identity(u *User) auth.Identity {
	return auth.Identity{ID: u.ID, Username: u.Username, Admin: u.IsAdmin}
}

// Get returns the user or a not-found error.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.ErrUserNotFound
	}
	return u, nil
}

// List returns one page of users.
func (s *Service) List(ctx context.Context, limit, offset int) (*ListResponse, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	out, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []User{}
	}
	return &ListResponse{Users: out, Total: total}, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *Service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	columns := applyProfile(u, req)
	if len(columns) == 0 {
		return u, nil
	}
	if err := s.repo.Update(ctx, u, columns...); err != nil {
		return nil, err
	}
	return u, nil
}

func applyProfile(u *User, req UpdateProfileRequest) []string {
	var columns []string
	set := func(dst *string, v *string, column string) {
		if v == nil {
			return
		}
		*dst = strings.TrimSpace(*v)
		columns = append(columns, column)
	}
	set(&u.Email, req.Email, "email")
	set(&u.FullName, req.FullName, "full_name")
	set(&u.Affiliation, req.Affiliation, "affiliation")
	set(&u.Location, req.Location, "location")
	set(&u.Link, req.Link, "link")
	return columns
}

// SetImage uploads a profile image and stores its public URL. The previous
// image is removed from storage when it was one of ours.
func (s *Service) SetImage(ctx context.Context, id, filename string, data io.Reader, size int64, contentType string) (*User, error) {
	if !s.storage.Enabled() {
		return nil, apperror.ErrServiceUnavailable.WithMessage("Image storage is not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperror.NewBadRequest("Profile image must be an image")
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.storage.Upload(ctx, storage.ImageKey(u.ID, filename), data, size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return nil, apperror.ErrServiceUnavailable.WithMessage("Image storage is not configured")
		}
		return nil, apperror.NewInternal("upload image", err)
	}

	previous := u.ImageFile
	u.ImageFile = res.URL
	if err := s.repo.Update(ctx, u, "imagefile"); err != nil {
		return nil, err
	}

	if key, ok := s.storage.KeyFromURL(previous); ok {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.log.Warn("failed to delete previous image", slog.String("key", key), logger.Error(err))
		}
	}
	return u, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}
