package storage

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/unlock"
	testutil "github.com/trezcool/coursetrack/tests"
)

func TestNewUnlockRepository(t *testing.T) {
	dir, err := ioutil.TempDir("", "coursetrack")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	tests := []struct {
		name    string
		storage core.StorageConfig
		wantErr error
	}{
		{name: "memory", storage: core.StorageConfig{Driver: core.StorageMemory}},
		{name: "default", storage: core.StorageConfig{}},
		{name: "file", storage: core.StorageConfig{Driver: core.StorageFile, Path: "unlocks.json"}},
		{name: "unknown", storage: core.StorageConfig{Driver: "redis"}, wantErr: ErrUnknownDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &core.Config{WorkDir: dir, Storage: tt.storage}
			repo, closeFn, err := NewUnlockRepository(conf, testutil.NewLogger())
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeFn()) }()

			rec := unlock.Record{UserID: "42", CourseID: "7", Shown: true, ExpiresAt: time.Now().Add(time.Hour)}
			require.NoError(t, repo.SaveRecord(context.Background(), rec))
			_, err = repo.GetRecord(context.Background(), "42", "7")
			assert.NoError(t, err)
		})
	}
	_, err = os.Stat(filepath.Join(dir, "unlocks.json"))
	assert.NoError(t, err, "file store writes under the work dir")
}
