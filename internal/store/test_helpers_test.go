package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/invitetrack/internal/invite"
)

// testNow is a fixed wall time used for updated_at and joined_at in tests.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBaseline creates a baseline row with minimal required fields.
func createTestBaseline(community, code string, uses int, creator string) invite.Baseline {
	return invite.Baseline{
		CommunityID: community,
		Code:        code,
		Uses:        uses,
		CreatorID:   creator,
		UpdatedAt:   testNow,
	}
}
