package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vogonweb/vogon/internal/config"
)

// Token audiences. Session tokens authenticate API and page requests; annotator
// tokens are embedded in the annotation page and only grant API access.
const (
	AudienceSession   = "session"
	AudienceAnnotator = "annotator"

	issuer = "vogon"
)

var ErrInvalidAudience = errors.New("token audience not accepted")

// Claims are the JWT claims issued by TokenIssuer.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
}

// Identity is the subject a token is issued for.
type Identity struct {
	ID       string
	Username string
	Admin    bool
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret       []byte
	sessionTTL   time.Duration
	annotatorTTL time.Duration
	now          func() time.Time
}

// NewTokenIssuer creates an issuer from the auth configuration.
func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	return &TokenIssuer{
		secret:       []byte(cfg.Auth.JWTSecret),
		sessionTTL:   cfg.Auth.SessionTTL,
		annotatorTTL: cfg.Auth.AnnotatorTTL,
		now:          time.Now,
	}
}

// IssueSession returns a session token and its expiry.
func (i *TokenIssuer) IssueSession(id Identity) (string, time.Time, error) {
	return i.issue(id, AudienceSession, i.sessionTTL)
}

// IssueAnnotator returns the short-lived token handed to the annotation client.
func (i *TokenIssuer) IssueAnnotator(id Identity) (string, time.Time, error) {
	return i.issue(id, AudienceAnnotator, i.annotatorTTL)
}

func (i *TokenIssuer) issue(id Identity, audience string, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.ID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: id.Username,
		Admin:    id.Admin,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses token and checks signature, expiry, issuer and that its
// audience is one of audiences.
func (i *TokenIssuer) Verify(token string, audiences ...string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}

	for _, want := range audiences {
		for _, got := range claims.Audience {
			if got == want {
				return claims, nil
			}
		}
	}
	return nil, ErrInvalidAudience
}
