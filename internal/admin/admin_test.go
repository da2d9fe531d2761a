package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mindmaps/internal/apperr"
	"github.com/starford/mindmaps/internal/models"
	"github.com/starford/mindmaps/internal/password"
	"github.com/starford/mindmaps/internal/store"
	"github.com/starford/mindmaps/internal/testutil"
)

type fixture struct {
	db  *store.DB
	mgr *Manager
	out *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.TestStore(t)
	out := &bytes.Buffer{}
	mgr := New(db, testutil.FastHasher(), password.Policy{MinLength: 8}, out)
	mgr.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	return &fixture{db: db, mgr: mgr, out: out}
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "h", SecurityQuestion: "q", SecurityAnswerHash: "a", Hint: "pet"}
	require.NoError(t, f.db.Users().Insert(context.Background(), u))
	return u
}

func (f *fixture) mindMap(t *testing.T, owner int64, title, data string) *models.MindMap {
	t.Helper()
	m := &models.MindMap{Title: title, Data: data, UserID: owner}
	require.NoError(t, f.db.Maps().Insert(context.Background(), m, title))
	return m
}

func TestViewUsersAndMaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.mgr.ViewUsers(ctx))
	assert.Contains(t, f.out.String(), "No users found.")

	alice := f.user(t, "alice@example.com")
	f.user(t, "bob@example.com")
	f.mindMap(t, alice.ID, "Plans", `{"name":"root"}`)
	f.mindMap(t, alice.ID, "Ideas", `{"name":"root"}`)

	f.out.Reset()
	require.NoError(t, f.mgr.ViewAll(ctx))
	out := f.out.String()
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "Total users: 2")
	assert.Contains(t, out, "Plans")
	assert.Contains(t, out, "Total maps: 2")
	assert.Contains(t, out, "N/A", "bob has no maps")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, `{"a":1}`, Preview(`{"a":1}`))
	long := strings.Repeat("x", 150)
	got := Preview(long)
	assert.Equal(t, strings.Repeat("x", 100)+"...", got)
	assert.Equal(t, "a b", Preview("a\n  b"))
}

func TestDeleteUsersDryRunAndForce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	f.mindMap(t, alice.ID, "One", `{}`)
	f.mindMap(t, alice.ID, "Two", `{}`)

	users, maps, err := f.mgr.DeleteUsers(ctx, []int64{alice.ID, 999}, false)
	require.NoError(t, err)
	assert.Zero(t, users)
	assert.Zero(t, maps)
	assert.Contains(t, f.out.String(), "would be permanently deleted")
	assert.Contains(t, f.out.String(), "User 999 not found")

	_, err = f.db.Users().FindByID(ctx, alice.ID)
	require.NoError(t, err, "dry run must not delete")

	users, maps, err = f.mgr.DeleteUsers(ctx, []int64{alice.ID}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, users)
	assert.Equal(t, 2, maps)

	_, err = f.db.Users().FindByID(ctx, alice.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	left, err := f.db.Maps().ListWithOwner(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = f.db.Users().FindByID(ctx, bob.ID)
	assert.NoError(t, err)
}

func TestDeleteUsersNoneFound(t *testing.T) {
	f := newFixture(t)
	users, maps, err := f.mgr.DeleteUsers(context.Background(), []int64{1, 2}, true)
	require.NoError(t, err)
	assert.Zero(t, users)
	assert.Zero(t, maps)
	assert.Contains(t, f.out.String(), "No users found with the provided ids.")
}

func TestDeleteMaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice@example.com")
	keep := f.mindMap(t, alice.ID, "Keep", `{}`)
	drop := f.mindMap(t, alice.ID, "Drop", `{}`)

	n, err := f.mgr.DeleteMaps(ctx, []int64{drop.ID}, false)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, f.out.String(), "owner: alice@example.com")

	n, err = f.mgr.DeleteMaps(ctx, []int64{drop.ID, 12345}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.db.Maps().FindByID(ctx, drop.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.db.Maps().FindByID(ctx, keep.ID)
	assert.NoError(t, err)
}

func TestSetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice@example.com")

	err := f.mgr.SetPassword(ctx, u.ID, "weak")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.mgr.SetPassword(ctx, u.ID, "Stronger1"))
	got, err := f.db.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, testutil.FastHasher().Verify("Stronger1", got.PasswordHash))

	assert.ErrorIs(t, f.mgr.SetPassword(ctx, 999, "Stronger1"), apperr.ErrNotFound)
}

func TestSetEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	f.user(t, "bob@example.com")

	require.NoError(t, f.mgr.SetEmail(ctx, alice.ID, "alice@new.example.com"))
	got, err := f.db.Users().FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@new.example.com", got.Email)

	assert.ErrorIs(t, f.mgr.SetEmail(ctx, alice.ID, "bob@example.com"), apperr.ErrDuplicateEmail)
	assert.ErrorIs(t, f.mgr.SetEmail(ctx, alice.ID, "  "), apperr.ErrValidation)
	assert.ErrorIs(t, f.mgr.SetEmail(ctx, 999, "x@example.com"), apperr.ErrNotFound)
}

func TestRenameMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	m := f.mindMap(t, alice.ID, "Old", `{}`)

	require.NoError(t, f.mgr.RenameMap(ctx, m.ID, "New"))
	got, err := f.db.Maps().FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.True(t, got.UpdatedAt.Equal(f.mgr.now()))

	assert.ErrorIs(t, f.mgr.RenameMap(ctx, 999, "x"), apperr.ErrNotFound)
	assert.ErrorIs(t, f.mgr.RenameMap(ctx, m.ID, ""), apperr.ErrValidation)
}

func TestExportJSON(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	f.mindMap(t, alice.ID, "Plans", `{"name":"<b>root</b>"}`)

	path := filepath.Join(t.TempDir(), "backup.json")
	files, err := f.mgr.Export(ctx, "json", path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var snap struct {
		ExportDate time.Time        `json:"export_date"`
		Users      []map[string]any `json:"users"`
		MindMaps   []map[string]any `json:"mindmaps"`
	}
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.True(t, snap.ExportDate.Equal(f.mgr.now()))
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "alice@example.com", snap.Users[0]["email"])
	assert.Equal(t, "h", snap.Users[0]["password_hash"])
	require.Len(t, snap.MindMaps, 1)
	assert.Equal(t, "alice@example.com", snap.MindMaps[0]["owner_email"])
	assert.Equal(t, `{"name":"<b>root</b>"}`, snap.MindMaps[0]["data"])
	assert.Contains(t, f.out.String(), "Exported 1 users and 1 maps.")
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	f.mindMap(t, alice.ID, "Plans, v2", `{"name":"root"}`)

	base := filepath.Join(t.TempDir(), "backup.csv")
	files, err := f.mgr.Export(ctx, "CSV", base)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, strings.HasSuffix(files[0], "backup_users.csv"))
	assert.True(t, strings.HasSuffix(files[1], "backup_maps.csv"))

	fh, err := os.Open(files[1])
	require.NoError(t, err)
	defer fh.Close()
	records, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "title", records[0][1])
	assert.Equal(t, "Plans, v2", records[1][1])
	assert.Equal(t, "alice@example.com", records[1][6])
}

func TestExportDefaultNameAndBadFormat(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.Export(context.Background(), "xml", "")
	assert.Error(t, err)

	t.Chdir(t.TempDir())
	files, err := f.mgr.Export(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"mindmap_export_20250601_100000.json"}, files)
}
