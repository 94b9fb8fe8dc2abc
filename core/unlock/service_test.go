package unlock

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursetrack/core/course"
	testutil "github.com/trezcool/coursetrack/tests"
)

type memRepo struct {
	records map[string]Record
	getErr  error
	saveErr error
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]Record)}
}

func (r *memRepo) GetRecord(_ context.Context, userID string, courseID course.ID) (Record, error) {
	if r.getErr != nil {
		return Record{}, r.getErr
	}
	rec, ok := r.records[Key(userID, courseID)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *memRepo) SaveRecord(_ context.Context, rec Record) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[Key(rec.UserID, rec.CourseID)] = rec
	return nil
}

func (r *memRepo) DeleteRecord(_ context.Context, userID string, courseID course.ID) error {
	key := Key(userID, courseID)
	if _, ok := r.records[key]; !ok {
		return ErrNotFound
	}
	delete(r.records, key)
	return nil
}

func (r *memRepo) DeleteExpiredRecords(_ context.Context, now time.Time) (int, error) {
	var n int
	for key, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, key)
			n++
		}
	}
	return n, nil
}

func mockNow(t *testing.T, now *time.Time) {
	old := nowFunc
	nowFunc = func() time.Time { return *now }
	t.Cleanup(func() { nowFunc = old })
}

func TestKey(t *testing.T) {
	if got := Key("42", "7"); got != "42:7" {
		t.Errorf("Key() = %q; want %q", got, "42:7")
	}
}

func TestService_MarkShown(t *testing.T) {
	now := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	mockNow(t, &now)
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, 0, testutil.NewLogger())

	_, ok := svc.Active(ctx, "42", "7")
	assert.False(t, ok)

	rec, err := svc.MarkShown(ctx, "42", "7")
	require.NoError(t, err)
	assert.True(t, rec.Shown)
	assert.Equal(t, now, rec.Timestamp)
	assert.Equal(t, now.Add(DefaultTTL), rec.ExpiresAt)

	got, ok := svc.Active(ctx, "42", "7")
	assert.True(t, ok)
	assert.Equal(t, rec, got)

	_, ok = svc.Active(ctx, "42", "8")
	assert.False(t, ok, "records are per course")
	_, ok = svc.Active(ctx, "43", "7")
	assert.False(t, ok, "records are per user")
}

func TestService_Active_expired(t *testing.T) {
	now := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	mockNow(t, &now)
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, time.Hour, testutil.NewLogger())

	_, err := svc.MarkShown(ctx, "42", "7")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, ok := svc.Active(ctx, "42", "7")
	assert.True(t, ok, "expiry is exclusive")

	now = now.Add(time.Second)
	_, ok = svc.Active(ctx, "42", "7")
	assert.False(t, ok)
	assert.Empty(t, repo.records, "expired record purged on read")
}

func TestService_Active_notShown(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	repo.records[Key("42", "7")] = Record{UserID: "42", CourseID: "7", ExpiresAt: time.Now().Add(time.Hour)}
	svc := NewService(repo, 0, testutil.NewLogger())

	_, ok := svc.Active(ctx, "42", "7")
	assert.False(t, ok)
}

func TestService_Active_readFailure(t *testing.T) {
	repo := newMemRepo()
	repo.getErr = errors.New("disk on fire")
	logger := testutil.NewLogger()
	svc := NewService(repo, 0, logger)

	_, ok := svc.Active(context.Background(), "42", "7")
	assert.False(t, ok, "read failures fail open")
	assert.Equal(t, 1, logger.Count("error"))
}

func TestService_MarkShown_failure(t *testing.T) {
	repo := newMemRepo()
	repo.saveErr = errors.New("read-only")
	svc := NewService(repo, 0, testutil.NewLogger())

	_, err := svc.MarkShown(context.Background(), "42", "7")
	assert.Error(t, err)
}

func TestService_Reset(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, 0, testutil.NewLogger())

	require.NoError(t, svc.Reset(ctx, "42", "7"), "missing record")

	_, err := svc.MarkShown(ctx, "42", "7")
	require.NoError(t, err)
	require.NoError(t, svc.Reset(ctx, "42", "7"))
	_, ok := svc.Active(ctx, "42", "7")
	assert.False(t, ok)
}

func TestService_PurgeExpired(t *testing.T) {
	now := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	mockNow(t, &now)
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, time.Hour, testutil.NewLogger())

	for _, crs := range []course.ID{"1", "2"} {
		_, err := svc.MarkShown(ctx, "42", crs)
		require.NoError(t, err)
	}
	now = now.Add(30 * time.Minute)
	_, err := svc.MarkShown(ctx, "42", "3")
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, repo.records, 1)
}
