package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mbarden/leadwire/leadwired/core/db"
)

func TempDBPath(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	return filepath.Join(root, "leadwire.db")
}

// TempDB opens a fresh migrated database under a per-test temp dir. The
// connection is closed when the test finishes.
func TempDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(TempDBPath(t))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
