package filestore

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursetrack/core/unlock"
	testutil "github.com/trezcool/coursetrack/tests"
)

func tempPath(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "coursetrack")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "data", "quiz_unlocks.json")
}

func TestUnlockRepository(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t)
	repo := NewUnlockRepository(path, testutil.NewLogger())
	now := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := repo.GetRecord(ctx, "42", "7")
	assert.Equal(t, unlock.ErrNotFound, err, "missing file")

	rec := unlock.Record{UserID: "42", CourseID: "7", Shown: true, Timestamp: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.SaveRecord(ctx, rec))

	// another process reads the same file
	got, err := NewUnlockRepository(path, testutil.NewLogger()).GetRecord(ctx, "42", "7")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	raw, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	var data map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &data))
	require.Contains(t, data, "42:7")
	assert.Equal(t, true, data["42:7"]["shown"])
	assert.Contains(t, data["42:7"], "expiresAt")

	old := unlock.Record{UserID: "42", CourseID: "8", Shown: true, Timestamp: now, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, repo.SaveRecord(ctx, old))
	n, err := repo.DeleteExpiredRecords(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.DeleteRecord(ctx, "42", "7"))
	assert.Equal(t, unlock.ErrNotFound, repo.DeleteRecord(ctx, "42", "7"))
}

func TestUnlockRepository_corruptFile(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, ioutil.WriteFile(path, []byte("{not json"), 0o644))

	logger := testutil.NewLogger()
	repo := NewUnlockRepository(path, logger)

	_, err := repo.GetRecord(ctx, "42", "7")
	assert.Equal(t, unlock.ErrNotFound, err)
	assert.Equal(t, 1, logger.Count("error"))

	rec := unlock.Record{UserID: "42", CourseID: "7", Shown: true, ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Second)}
	require.NoError(t, repo.SaveRecord(ctx, rec), "a corrupt file is overwritten")
	got, err := repo.GetRecord(ctx, "42", "7")
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))
}
