// Package filestore keeps quiz unlock records in a single JSON blob file:
//
//	{"<user>:<course>": {"shown": true, "timestamp": "...", "expiresAt": "..."}}
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/course"
	"github.com/trezcool/coursetrack/core/unlock"
)

type blob map[string]unlock.Record

type unlockRepository struct {
	mu     sync.Mutex
	path   string
	logger core.Logger
}

var _ unlock.Repository = (*unlockRepository)(nil) // interface compliance check

func NewUnlockRepository(path string, logger core.Logger) unlock.Repository {
	return &unlockRepository{path: path, logger: logger}
}

// load reads the blob. A missing file is an empty blob; so is a corrupt one (logged).
func (repo *unlockRepository) load() blob {
	data := make(blob)
	raw, err := ioutil.ReadFile(repo.path)
	if err != nil {
		if !os.IsNotExist(err) {
			repo.logger.Error(fmt.Sprintf("reading %s: %v", repo.path, err), err)
		}
		return data
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return data
	}
	if err = json.Unmarshal(raw, &data); err != nil {
		repo.logger.Error(fmt.Sprintf("parsing %s: %v", repo.path, err), err)
		return make(blob)
	}
	return data
}

// save writes the blob through a temp file so readers never see a partial write.
func (repo *unlockRepository) save(data blob) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding quiz unlock records")
	}
	dir := filepath.Dir(repo.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	tmp, err := ioutil.TempFile(dir, filepath.Base(repo.path)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	if _, err = tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "writing temp file")
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "closing temp file")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), repo.path), "replacing %s", repo.path)
}

func (repo *unlockRepository) GetRecord(_ context.Context, userID string, courseID course.ID) (unlock.Record, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	rec, ok := repo.load()[unlock.Key(userID, courseID)]
	if !ok {
		return unlock.Record{}, unlock.ErrNotFound
	}
	rec.UserID = userID
	rec.CourseID = courseID
	return rec, nil
}

func (repo *unlockRepository) SaveRecord(_ context.Context, rec unlock.Record) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	data := repo.load()
	data[unlock.Key(rec.UserID, rec.CourseID)] = rec
	return repo.save(data)
}

func (repo *unlockRepository) DeleteRecord(_ context.Context, userID string, courseID course.ID) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	data := repo.load()
	key := unlock.Key(userID, courseID)
	if _, ok := data[key]; !ok {
		return unlock.ErrNotFound
	}
	delete(data, key)
	return repo.save(data)
}

func (repo *unlockRepository) DeleteExpiredRecords(_ context.Context, now time.Time) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	data := repo.load()
	var n int
	for key, rec := range data {
		if rec.Expired(now) {
			delete(data, key)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, repo.save(data)
}
