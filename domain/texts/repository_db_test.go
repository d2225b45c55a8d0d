package texts_test

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"

	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/internal/testutil"
	"github.com/vogonweb/vogon/pkg/apperror"
)

type RepositorySuite struct {
	testutil.BaseSuite
	repo *texts.Repository
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, &RepositorySuite{BaseSuite: testutil.NewBaseSuite("texts")})
}

func (s *RepositorySuite) SetupTest() {
	s.BaseSuite.SetupTest()
	s.repo = texts.NewRepository(s.DB(), slog.Default())
}

func (s *RepositorySuite) TestUserCanRead() {
	id, err := testutil.CreateText(s.Ctx, s.DB(), "http://example.org/t/1", "Guide", s.AdminID)
	s.Require().NoError(err)

	ok, err := s.repo.UserCanRead(s.Ctx, id, s.UserID)
	s.Require().NoError(err)
	s.True(ok, "public text")

	_, err = s.DB().NewRaw("UPDATE texts SET public = false WHERE id = ?", id).Exec(s.Ctx)
	s.Require().NoError(err)

	ok, err = s.repo.UserCanRead(s.Ctx, id, s.UserID)
	s.Require().NoError(err)
	s.False(ok, "private text of another user")

	ok, err = s.repo.UserCanRead(s.Ctx, id, s.AdminID)
	s.Require().NoError(err)
	s.True(ok, "private text of its owner")
}

func (s *RepositorySuite) TestFindByURI() {
	id, err := testutil.CreateText(s.Ctx, s.DB(), "http://example.org/t/2", "Restaurant", s.UserID)
	s.Require().NoError(err)

	t, err := s.repo.FindByURI(s.Ctx, "http://example.org/t/2")
	s.Require().NoError(err)
	s.Require().NotNil(t)
	s.Equal(id, t.ID)
	s.Equal("Restaurant", t.Title)

	parent, err := s.repo.ParentOf(s.Ctx, id)
	s.NoError(err)
	s.Nil(parent)
}

func (s *RepositorySuite) TestSetPartOf() {
	root, err := testutil.CreateText(s.Ctx, s.DB(), "http://example.org/t/root", "Root", s.UserID)
	s.Require().NoError(err)
	child, err := testutil.CreateText(s.Ctx, s.DB(), "http://example.org/t/child", "Child", s.UserID)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.SetPartOf(s.Ctx, child, &root))
	parent, err := s.repo.ParentOf(s.Ctx, child)
	s.Require().NoError(err)
	s.Require().NotNil(parent)
	s.Equal(root, *parent)

	s.ErrorIs(s.repo.SetPartOf(s.Ctx, root, &child), apperror.ErrPartOfCycle)
	s.ErrorIs(s.repo.SetPartOf(s.Ctx, root, &root), apperror.ErrPartOfCycle)

	s.Require().NoError(s.repo.SetPartOf(s.Ctx, child, nil))
	parent, err = s.repo.ParentOf(s.Ctx, child)
	s.NoError(err)
	s.Nil(parent)
}

// Runs outside the per-test transaction so both writers see committed rows.
func (s *RepositorySuite) TestSetPartOf_ConcurrentOppositeParents() {
	db := s.TestDB.DB
	repo := texts.NewRepository(db, slog.Default())

	x := &texts.Text{URI: "http://example.org/t/race-x", Title: "X", ContentType: "text/plain", Public: true}
	y := &texts.Text{URI: "http://example.org/t/race-y", Title: "Y", ContentType: "text/plain", Public: true}
	s.Require().NoError(repo.Create(s.Ctx, x))
	s.Require().NoError(repo.Create(s.Ctx, y))
	defer func() {
		_, _ = db.NewDelete().Model((*texts.Text)(nil)).Where("id IN (?)", bun.In([]string{x.ID, y.ID})).Exec(s.Ctx)
	}()

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, pair := range [][2]string{{x.ID, y.ID}, {y.ID, x.ID}} {
		wg.Add(1)
		go func(i int, id, parent string) {
			defer wg.Done()
			errs[i] = repo.SetPartOf(s.Ctx, id, &parent)
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			s.ErrorIs(err, apperror.ErrPartOfCycle)
			failed++
		}
	}
	s.Equal(1, failed, "exactly one of the opposite parent changes must lose")

	px, err := repo.ParentOf(s.Ctx, x.ID)
	s.Require().NoError(err)
	py, err := repo.ParentOf(s.Ctx, y.ID)
	s.Require().NoError(err)
	s.False(px != nil && py != nil, "x and y must not be each other's parent")
}
