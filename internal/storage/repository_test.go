package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"tracker/internal/auth"
	"tracker/internal/core"
)

// RepositoryTestSuite runs against a fresh database file per test.
type RepositoryTestSuite struct {
	suite.Suite
	repo *SQLiteRepository
	ctx  context.Context
}

func (suite *RepositoryTestSuite) SetupSuite() {
	auth.BcryptCost = bcrypt.MinCost
}

func (suite *RepositoryTestSuite) SetupTest() {
	suite.ctx = context.Background()
	path := filepath.Join(suite.T().TempDir(), "tracker.db")
	repo, err := NewSQLiteRepository(suite.ctx, path, time.Hour)
	require.NoError(suite.T(), err, "failed to create test database")
	suite.repo = repo
}

func (suite *RepositoryTestSuite) TearDownTest() {
	if suite.repo != nil {
		suite.repo.Close()
	}
}

func (suite *RepositoryTestSuite) TestMigrationsAreIdempotent() {
	path := filepath.Join(suite.T().TempDir(), "again.db")
	require.NoError(suite.T(), RunMigrations(path))
	assert.NoError(suite.T(), RunMigrations(path))
}

func (suite *RepositoryTestSuite) TestSignUpThenSignIn() {
	res, err := suite.repo.SignUp(suite.ctx, "Ada@Example.com", "secret1")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), res.User)
	require.NotNil(suite.T(), res.Session)
	assert.Equal(suite.T(), "ada@example.com", res.User.Email)
	assert.Equal(suite.T(), int64(3600), res.Session.ExpiresIn)

	login, err := suite.repo.SignIn(suite.ctx, "ada@example.com", "secret1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), res.User.ID, login.User.ID)
	assert.NotEqual(suite.T(), res.Session.AccessToken, login.Session.AccessToken)
}

func (suite *RepositoryTestSuite) TestSignUpDuplicateEmail() {
	_, err := suite.repo.SignUp(suite.ctx, "ada@example.com", "secret1")
	require.NoError(suite.T(), err)

	_, err = suite.repo.SignUp(suite.ctx, "ADA@example.com", "secret2")
	assert.True(suite.T(), errors.Is(err, core.ErrEmailTaken), "got %v", err)
}

func (suite *RepositoryTestSuite) TestSignInRejectsBadCredentials() {
	_, err := suite.repo.SignUp(suite.ctx, "ada@example.com", "secret1")
	require.NoError(suite.T(), err)

	_, err = suite.repo.SignIn(suite.ctx, "ada@example.com", "nope")
	assert.True(suite.T(), errors.Is(err, core.ErrInvalidCredentials))

	_, err = suite.repo.SignIn(suite.ctx, "ghost@example.com", "secret1")
	assert.True(suite.T(), errors.Is(err, core.ErrInvalidCredentials))
}

func (suite *RepositoryTestSuite) TestSignInPurgesExpiredSessions() {
	res, err := suite.repo.SignUp(suite.ctx, "ada@example.com", "secret1")
	require.NoError(suite.T(), err)

	suite.repo.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	login, err := suite.repo.SignIn(suite.ctx, "ada@example.com", "secret1")
	require.NoError(suite.T(), err)

	var tokens []string
	rows, err := suite.repo.db.QueryContext(suite.ctx, `SELECT token FROM sessions`)
	require.NoError(suite.T(), err)
	defer rows.Close()
	for rows.Next() {
		var tok string
		require.NoError(suite.T(), rows.Scan(&tok))
		tokens = append(tokens, tok)
	}
	require.NoError(suite.T(), rows.Err())
	assert.Equal(suite.T(), []string{login.Session.AccessToken}, tokens)
	assert.NotContains(suite.T(), tokens, res.Session.AccessToken)
}

func (suite *RepositoryTestSuite) TestSignUpPasswordTooLong() {
	_, err := suite.repo.SignUp(suite.ctx, "ada@example.com", strings.Repeat("x", 80))
	var ae *core.AuthError
	require.True(suite.T(), errors.As(err, &ae), "got %T %v", err, err)
	assert.Equal(suite.T(), auth.PasswordTooLongMessage, ae.Message)

	_, err = suite.repo.SignIn(suite.ctx, "ada@example.com", strings.Repeat("x", 80))
	assert.True(suite.T(), errors.Is(err, core.ErrInvalidCredentials), "account must not exist, got %v", err)
}

func (suite *RepositoryTestSuite) TestInsertTransactionRoundTrip() {
	row, err := suite.repo.Insert(suite.ctx, core.TableTransactions, core.Record{
		"amount":      json.Number("12.50"),
		"description": "Lunch",
		"type":        "expense",
		"category":    "food",
		"user_id":     "u1",
	})
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), row.String("id"))
	assert.NotEmpty(suite.T(), row.String("created_at"))
	assert.Equal(suite.T(), json.Number("12.50"), row["amount"])
	assert.Equal(suite.T(), "food", row["category"])

	tx, err := core.TransactionFromRecord(row)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "12.5", tx.Amount.String())
}

func (suite *RepositoryTestSuite) TestInsertKeepsNullsAndNonNumericAmounts() {
	row, err := suite.repo.Insert(suite.ctx, core.TableStudyTasks, core.Record{"title": "Read", "deadline": nil})
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), row["deadline"])
	assert.Nil(suite.T(), row["description"])

	row, err = suite.repo.Insert(suite.ctx, core.TableTransactions, core.Record{
		"amount": "lots", "description": "x", "type": "expense",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "lots", row["amount"])
}

func (suite *RepositoryTestSuite) TestInsertRejectsUnknownTableAndColumn() {
	_, err := suite.repo.Insert(suite.ctx, "accounts", core.Record{"email": "x"})
	assert.True(suite.T(), errors.Is(err, core.ErrUnknownTable))

	_, err = suite.repo.Insert(suite.ctx, core.TableStudyTasks, core.Record{"title": "t", "owner": "me"})
	assert.True(suite.T(), errors.Is(err, core.ErrUnknownColumn))
}

func (suite *RepositoryTestSuite) TestSelectOrderingAndFilter() {
	seed := []core.Record{
		{"amount": "1", "description": "rent", "type": "expense", "user_id": "u1", "created_at": "2024-01-02T00:00:00.000000Z"},
		{"amount": "2", "description": "bread", "type": "expense", "user_id": "u2", "created_at": "2024-01-03T00:00:00.000000Z"},
		{"amount": "3", "description": "coffee", "type": "expense", "user_id": "u1", "created_at": "2024-01-01T00:00:00.000000Z"},
	}
	for _, r := range seed {
		_, err := suite.repo.Insert(suite.ctx, core.TableTransactions, r)
		require.NoError(suite.T(), err)
	}

	rows, err := suite.repo.Select(suite.ctx, core.TableTransactions, core.Query{}.OrderBy("created_at", false))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), rows, 3)
	assert.Equal(suite.T(), "bread", rows[0].String("description"))
	assert.Equal(suite.T(), "coffee", rows[2].String("description"))

	rows, err = suite.repo.Select(suite.ctx, core.TableTransactions,
		core.Query{}.Select("description").Eq("user_id", "u1").OrderBy("description", true))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []core.Record{{"description": "coffee"}, {"description": "rent"}}, rows)
}

func (suite *RepositoryTestSuite) TestSelectEmptyTable() {
	rows, err := suite.repo.Select(suite.ctx, core.TableStudyTasks, core.Query{})
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), rows)
	assert.Empty(suite.T(), rows)
}

func (suite *RepositoryTestSuite) TestSelectRejectsUnknownColumn() {
	_, err := suite.repo.Select(suite.ctx, core.TableStudyTasks, core.Query{}.OrderBy("title; DROP TABLE study_tasks", true))
	assert.True(suite.T(), errors.Is(err, core.ErrUnknownColumn))
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
