package testutil

import (
	"context"
	"os"

	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"
)

// EnvDBTests enables the database suites when set to a non-empty value.
const EnvDBTests = "VOGON_DB_TESTS"

// BaseSuite gives a test suite its own database and wraps each test in a
// transaction that is rolled back afterwards.
//
//	type RepoSuite struct {
//	    testutil.BaseSuite
//	}
//
//	func TestRepoSuite(t *testing.T) {
//	    suite.Run(t, &RepoSuite{BaseSuite: testutil.NewBaseSuite("concepts")})
//	}
type BaseSuite struct {
	suite.Suite
	TestDB *TestDB
	Ctx    context.Context

	// UserID is a plain user created for every test
	UserID string
	// AdminID is an administrator created for every test
	AdminID string

	dbSuffix string
}

// NewBaseSuite names the suite's database after suffix.
func NewBaseSuite(suffix string) BaseSuite {
	return BaseSuite{dbSuffix: suffix}
}

// SetupSuite creates the database, or skips the suite unless VOGON_DB_TESTS is set.
func (s *BaseSuite) SetupSuite() {
	if os.Getenv(EnvDBTests) == "" {
		s.T().Skipf("set %s=1 to run database tests", EnvDBTests)
	}
	s.Ctx = context.Background()

	suffix := s.dbSuffix
	if suffix == "" {
		suffix = "test"
	}
	db, err := SetupTestDB(s.Ctx, suffix)
	s.Require().NoError(err, "Failed to setup test database")
	s.TestDB = db
}

// TearDownSuite drops the database.
func (s *BaseSuite) TearDownSuite() {
	if s.TestDB != nil {
		s.TestDB.Close()
	}
}

// SetupTest starts the test transaction and creates the user fixtures.
func (s *BaseSuite) SetupTest() {
	s.Require().NoError(s.TestDB.BeginTestTx(s.Ctx))

	var err error
	s.UserID, err = CreateUser(s.Ctx, s.DB(), "arthur", false)
	s.Require().NoError(err)
	s.AdminID, err = CreateUser(s.Ctx, s.DB(), "zaphod", true)
	s.Require().NoError(err)
}

// TearDownTest rolls back the test transaction.
func (s *BaseSuite) TearDownTest() {
	_ = s.TestDB.RollbackTestTx()
}

// DB returns the current test transaction.
func (s *BaseSuite) DB() bun.IDB {
	return s.TestDB.GetDB()
}
