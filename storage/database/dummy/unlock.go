package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/coursetrack/core/course"
	"github.com/trezcool/coursetrack/core/unlock"
)

type unlockRepository struct {
	db *unlockTable
}

var _ unlock.Repository = (*unlockRepository)(nil) // interface compliance check

func NewUnlockRepository(db *DB) unlock.Repository {
	return &unlockRepository{db: db.unlock}
}

func (repo *unlockRepository) GetRecord(_ context.Context, userID string, courseID course.ID) (unlock.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[unlock.Key(userID, courseID)]; ok {
		return *rec, nil
	}
	return unlock.Record{}, unlock.ErrNotFound
}

func (repo *unlockRepository) SaveRecord(_ context.Context, rec unlock.Record) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[unlock.Key(rec.UserID, rec.CourseID)] = &rec
	return nil
}

func (repo *unlockRepository) DeleteRecord(_ context.Context, userID string, courseID course.ID) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := unlock.Key(userID, courseID)
	if _, ok := repo.db.table[key]; !ok {
		return unlock.ErrNotFound
	}
	delete(repo.db.table, key)
	return nil
}

func (repo *unlockRepository) DeleteExpiredRecords(_ context.Context, now time.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for key, rec := range repo.db.table {
		if rec.Expired(now) {
			delete(repo.db.table, key)
			n++
		}
	}
	return n, nil
}
