// Package testutil provides shared test helpers for setting up workspaces
// and session databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/ansuz/internal/session"
	"github.com/starford/ansuz/internal/storage"
)

// TestSession creates a temporary SQLite session database that is
// automatically cleaned up.
func TestSession(t *testing.T) *session.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := session.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with a rooted
// filesystem accessor.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	ws, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, ws
}
