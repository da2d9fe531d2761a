// Package testutil provides shared test helpers for setting up databases and services.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/mindmaps/internal/password"
	"github.com/starford/mindmaps/internal/store"
)

// TestStore creates a temporary SQLite database that is automatically cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mindmaps-test.db")
	db, err := store.Open(context.Background(), store.DriverSQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FastHasher returns a password hasher at the minimum bcrypt cost.
func FastHasher() *password.Hasher {
	return password.New(bcrypt.MinCost)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
