package settings

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot-go/internal/db"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	return NewRepository(dbPair, nil)
}

func TestGetReturnsFallbackWhenAbsent(t *testing.T) {
	repo := setupTestRepo(t)

	require.Equal(t, "default-model", repo.Get("selected_model", "default-model"))
}

func TestSetThenGet(t *testing.T) {
	repo := setupTestRepo(t)

	require.True(t, repo.Set("selected_model", "model-a"))
	require.Equal(t, "model-a", repo.Get("selected_model", "fallback"))
}

func TestSetOverwrites(t *testing.T) {
	repo := setupTestRepo(t)

	require.True(t, repo.Set("selected_model", "model-a"))
	require.True(t, repo.Set("selected_model", "model-b"))
	require.Equal(t, "model-b", repo.Get("selected_model", "fallback"))
}
