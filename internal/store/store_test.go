package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mindmaps/internal/apperr"
	"github.com/starford/mindmaps/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "mindmaps-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()
	u := &models.User{
		Email:              email,
		PasswordHash:       "pw-hash",
		SecurityQuestion:   "Pet?",
		SecurityAnswerHash: "answer-hash",
		Hint:               "furry",
	}
	require.NoError(t, db.Users().Insert(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func insertMap(t *testing.T, db *DB, owner int64, title, data, text string) *models.MindMap {
	t.Helper()
	m := &models.MindMap{Title: title, Data: data, UserID: owner}
	require.NoError(t, db.Maps().Insert(context.Background(), m, text))
	return m
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	db, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, db.Ping(context.Background()))
	require.NoError(t, db.Close())
}

func TestUsersInsertAndFind(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := insertUser(t, db, "alice@example.com")

	got, err := db.Users().FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "pw-hash", got.PasswordHash)
	assert.Equal(t, "Pet?", got.SecurityQuestion)
	assert.Equal(t, "furry", got.Hint)

	byID, err := db.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	_, err = db.Users().FindByEmail(ctx, "ALICE@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "email match is exact")

	ok, err := db.Users().EmailExists(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.Users().EmailExists(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUsersDuplicateEmail(t *testing.T) {
	db := testDB(t)
	insertUser(t, db, "dup@example.com")

	err := db.Users().Insert(context.Background(), &models.User{Email: "dup@example.com"})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestUsersUpdates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := insertUser(t, db, "a@example.com")
	insertUser(t, db, "b@example.com")

	require.NoError(t, db.Users().UpdatePasswordHash(ctx, a.ID, "new-hash"))
	got, err := db.Users().FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, db.Users().UpdatePasswordHash(ctx, 9999, "x"), apperr.ErrNotFound)
	assert.ErrorIs(t, db.Users().UpdateEmail(ctx, a.ID, "b@example.com"), apperr.ErrAlreadyExists)
	require.NoError(t, db.Users().UpdateEmail(ctx, a.ID, "c@example.com"))

	users, err := db.Users().List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "c@example.com", users[0].Email)
}

func TestDeleteUserCascadesMaps(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := insertUser(t, db, "gone@example.com")
	m := insertMap(t, db, u.ID, "t", `{}`, "")

	require.NoError(t, db.Users().Delete(ctx, u.ID))
	_, err := db.Maps().FindByID(ctx, m.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, db.Users().Delete(ctx, u.ID), apperr.ErrNotFound)
}

func TestMapsOwnership(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := insertUser(t, db, "alice@example.com")
	bob := insertUser(t, db, "bob@example.com")
	m := insertMap(t, db, alice.ID, "Plans", `{"name":"root"}`, "root")

	got, err := db.Maps().FindByIDAndOwner(ctx, m.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"root"}`, got.Data)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = db.Maps().FindByIDAndOwner(ctx, m.ID, bob.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = db.Maps().FindByIDAndOwner(ctx, 424242, alice.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, db.Maps().Delete(ctx, m.ID, bob.ID), apperr.ErrNotFound)
	require.NoError(t, db.Maps().Delete(ctx, m.ID, alice.ID))
	assert.ErrorIs(t, db.Maps().Delete(ctx, m.ID, alice.ID), apperr.ErrNotFound)
}

func TestMapsUpdateAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := insertUser(t, db, "u@example.com")
	first := insertMap(t, db, u.ID, "first", `{}`, "")
	insertMap(t, db, u.ID, "second", `{}`, "")

	first.Title = "first, edited"
	first.UpdatedAt = time.Now().UTC().Add(time.Minute)
	require.NoError(t, db.Maps().Update(ctx, first, "edited"))

	list, err := db.Maps().ListByOwner(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first, edited", list[0].Title, "most recently updated first")

	other := *first
	other.UserID = u.ID + 100
	assert.ErrorIs(t, db.Maps().Update(ctx, &other, ""), apperr.ErrNotFound)

	empty, err := db.Maps().ListByOwner(ctx, u.ID+100)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMapsSearch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := insertUser(t, db, "alice@example.com")
	bob := insertUser(t, db, "bob@example.com")
	insertMap(t, db, alice.ID, "Garden", `{}`, "tomatoes and basil")
	insertMap(t, db, alice.ID, "Budget 100%", `{}`, "rent")
	insertMap(t, db, bob.ID, "Tomato farm", `{}`, "tomatoes")

	hits, err := db.Maps().Search(ctx, alice.ID, "TOMATO", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Garden", hits[0].Title)
	assert.Equal(t, "tomatoes and basil", hits[0].Snippet)

	hits, err = db.Maps().Search(ctx, alice.ID, "100%", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Budget 100%", hits[0].Title)

	hits, err = db.Maps().Search(ctx, alice.ID, "%", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "wildcards are matched literally")

	hits, err = db.Maps().Search(ctx, alice.ID, "", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "limit applies")
}

func TestMapsSearchFoldsNonASCII(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := insertUser(t, db, "anna@example.com")
	m := insertMap(t, db, u.ID, "Ärger im Büro", `{}`, "Über Größe")

	for _, q := range []string{"ärger", "Ärger", "ÄRGER", "büro", "über", "größe"} {
		hits, err := db.Maps().Search(ctx, u.ID, q, 0)
		require.NoError(t, err, q)
		require.Len(t, hits, 1, q)
		assert.Equal(t, "Ärger im Büro", hits[0].Title)
		assert.Equal(t, "Über Größe", hits[0].Snippet)
	}

	require.NoError(t, db.Maps().UpdateTitle(ctx, m.ID, "Ölpreis", time.Now().UTC()))
	hits, err := db.Maps().Search(ctx, u.ID, "ölpreis", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	hits, err = db.Maps().Search(ctx, u.ID, "ärger", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMapsSearchMatchesEscapedText(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := insertUser(t, db, "cat@example.com")
	insertMap(t, db, u.ID, "Pets", `{}`, "Cats &amp; Dogs")

	hits, err := db.Maps().Search(ctx, u.ID, "cats & dogs", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Cats &amp; Dogs", hits[0].Snippet)
}

func TestMapsAdminQueries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := insertUser(t, db, "owner@example.com")
	m := insertMap(t, db, u.ID, "Old", `{}`, "")

	require.NoError(t, db.Maps().UpdateTitle(ctx, m.ID, "New", time.Now().UTC()))
	all, err := db.Maps().ListWithOwner(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "New", all[0].Title)
	assert.Equal(t, "owner@example.com", all[0].OwnerEmail)

	require.NoError(t, db.Maps().DeleteByID(ctx, m.ID))
	assert.ErrorIs(t, db.Maps().DeleteByID(ctx, m.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, db.Maps().UpdateTitle(ctx, m.ID, "x", time.Now()), apperr.ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(ctx context.Context, users *Users, _ *Maps) error {
		require.NoError(t, users.Insert(ctx, &models.User{Email: "tx@example.com"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	ok, err := db.Users().EmailExists(ctx, "tx@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRebind(t *testing.T) {
	pg := querier{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	lite := querier{driver: DriverSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%abc%`, likePattern("ABC"))
	assert.Equal(t, `%ärger%`, likePattern("ÄRGER"))
	assert.Equal(t, `%50\%\_off\\%`, likePattern(`50%_off\`))
}

func TestPostgresPlaceholdersAndErrors(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer conn.Close()

	users := NewUsers(conn, DriverPostgres)
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("x@example.com").
		WillReturnError(errors.New("db down"))

	_, err = users.FindByEmail(context.Background(), "x@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "store: find user by email: db down")

	mock.ExpectQuery(`(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("x@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	ok, err := users.EmailExists(context.Background(), "x@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReportsRowsAffectedError(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec(`^UPDATE users SET password_hash = \? WHERE id = \?$`).
		WithArgs("h", int64(7)).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))

	err = NewUsers(conn, DriverSQLite).UpdatePasswordHash(context.Background(), 7, "h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no count")
	require.NoError(t, mock.ExpectationsWereMet())
}
