package giles_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vogonweb/vogon/domain/giles"
	"github.com/vogonweb/vogon/internal/testutil"
)

type RepositorySuite struct {
	testutil.BaseSuite
	repo *giles.Repository
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, &RepositorySuite{BaseSuite: testutil.NewBaseSuite("giles")})
}

func (s *RepositorySuite) SetupTest() {
	s.BaseSuite.SetupTest()
	s.repo = giles.NewRepository(s.DB(), slog.Default())
}

func (s *RepositorySuite) TestFindByUser_NoToken() {
	tok, err := s.repo.FindByUser(s.Ctx, s.UserID)
	s.NoError(err)
	s.Nil(tok)
}

func (s *RepositorySuite) TestUpsert_ReplacesToken() {
	s.Require().NoError(s.repo.Upsert(s.Ctx, &giles.Token{UserID: s.UserID, Token: "first"}))
	s.Require().NoError(s.repo.Upsert(s.Ctx, &giles.Token{UserID: s.UserID, Token: "second"}))

	tok, err := s.repo.FindByUser(s.Ctx, s.UserID)
	s.Require().NoError(err)
	s.Require().NotNil(tok)
	s.Equal("second", tok.Token)

	var n int
	s.Require().NoError(s.DB().NewRaw("SELECT count(*) FROM giles_tokens WHERE user_id = ?", s.UserID).Scan(s.Ctx, &n))
	s.Equal(1, n)
}
