package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursetrack/core/unlock"
)

func TestUnlockRepository(t *testing.T) {
	ctx := context.Background()
	db, err := Open()
	require.NoError(t, err)
	repo := NewUnlockRepository(db)
	now := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err = repo.GetRecord(ctx, "42", "7")
	assert.Equal(t, unlock.ErrNotFound, err)

	rec := unlock.Record{UserID: "42", CourseID: "7", Shown: true, Timestamp: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.SaveRecord(ctx, rec))
	got, err := repo.GetRecord(ctx, "42", "7")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	old := unlock.Record{UserID: "42", CourseID: "8", Shown: true, Timestamp: now, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, repo.SaveRecord(ctx, old))
	n, err := repo.DeleteExpiredRecords(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.DeleteRecord(ctx, "42", "7"))
	assert.Equal(t, unlock.ErrNotFound, repo.DeleteRecord(ctx, "42", "7"))
}
