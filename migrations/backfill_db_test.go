package migrations_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/vogonweb/vogon/internal/migrate"
	"github.com/vogonweb/vogon/internal/testutil"
)

// BackfillSuite runs the document type back-fill against real rows. It owns
// its database because goose migrates outside any test transaction.
type BackfillSuite struct {
	suite.Suite
	ctx context.Context
	db  *testutil.TestDB
}

func TestBackfillSuite(t *testing.T) {
	suite.Run(t, new(BackfillSuite))
}

func (s *BackfillSuite) SetupSuite() {
	if os.Getenv(testutil.EnvDBTests) == "" {
		s.T().Skipf("set %s=1 to run database tests", testutil.EnvDBTests)
	}
	s.ctx = context.Background()
	db, err := testutil.SetupTestDB(s.ctx, "backfill")
	s.Require().NoError(err)
	s.db = db
}

func (s *BackfillSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *BackfillSuite) insertText(db *sql.DB, uri, tokenized string, docType *string) string {
	var id string
	err := db.QueryRowContext(s.ctx,
		`INSERT INTO texts (uri, title, tokenized_content, document_type) VALUES ($1, $1, $2, $3) RETURNING id`,
		uri, tokenized, docType,
	).Scan(&id)
	s.Require().NoError(err)
	return id
}

func (s *BackfillSuite) documentType(db *sql.DB, id string) *string {
	var docType sql.NullString
	s.Require().NoError(db.QueryRowContext(s.ctx, `SELECT document_type FROM texts WHERE id = $1`, id).Scan(&docType))
	if !docType.Valid {
		return nil
	}
	return &docType.String
}

func (s *BackfillSuite) TestBackfillDocumentType() {
	db := s.db.DB.DB
	m, err := migrate.NewMigrator(db, zap.NewNop())
	s.Require().NoError(err)

	s.Require().NoError(m.DownTo(s.ctx, 4))
	v, err := m.Version(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(int64(4), v)

	image := "IM"
	html := "HP"
	tokenized := s.insertText(db, "http://example.org/b/tokenized", `<word id="1">Dent</word>`, nil)
	retyped := s.insertText(db, "http://example.org/b/retyped", `<word id="1">Prefect</word>`, &html)
	empty := s.insertText(db, "http://example.org/b/empty", "", nil)
	typedEmpty := s.insertText(db, "http://example.org/b/image", "", &image)

	s.Require().NoError(m.UpTo(s.ctx, 5))

	if got := s.documentType(db, tokenized); s.NotNil(got) {
		s.Equal("PT", *got)
	}
	if got := s.documentType(db, retyped); s.NotNil(got) {
		s.Equal("PT", *got)
	}
	s.Nil(s.documentType(db, empty))
	if got := s.documentType(db, typedEmpty); s.NotNil(got) {
		s.Equal("IM", *got)
	}

	s.Require().NoError(m.Up(s.ctx))
}
