package unlock

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/course"
)

// DefaultTTL is how long a quiz unlock popup stays remembered.
const DefaultTTL = 24 * time.Hour

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("quiz unlock record not found")
)

// Record remembers that the one-time quiz unlock popup was shown to a user for a course.
type Record struct {
	UserID    string    `json:"-"`
	CourseID  course.ID `json:"-"`
	Shown     bool      `json:"shown"`
	Timestamp time.Time `json:"timestamp"` // UTC
	ExpiresAt time.Time `json:"expiresAt"` // UTC
}

func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Key is the storage key of the record: "<user>:<course>".
func Key(userID string, courseID course.ID) string {
	return userID + ":" + string(courseID)
}

type (
	Repository interface {
		GetRecord(ctx context.Context, userID string, courseID course.ID) (Record, error)
		SaveRecord(ctx context.Context, rec Record) error
		DeleteRecord(ctx context.Context, userID string, courseID course.ID) error
		// DeleteExpiredRecords deletes records with ExpiresAt before now and returns how many were deleted.
		DeleteExpiredRecords(ctx context.Context, now time.Time) (int, error)
	}

	Service struct {
		repo   Repository
		ttl    time.Duration
		logger core.Logger
	}
)

func NewService(repo Repository, ttl time.Duration, logger core.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, ttl: ttl, logger: logger}
}

// Active returns the user's record for the course if one is set and not expired.
// Expired records are deleted on the way. Read failures are logged and reported as no record.
func (svc *Service) Active(ctx context.Context, userID string, courseID course.ID) (Record, bool) {
	rec, err := svc.repo.GetRecord(ctx, userID, courseID)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			svc.logger.Error(fmt.Sprintf("reading quiz unlock record %s: %v", Key(userID, courseID), err), err)
		}
		return Record{}, false
	}
	if !rec.Shown {
		return Record{}, false
	}
	if rec.Expired(nowFunc().UTC()) {
		if err = svc.repo.DeleteRecord(ctx, userID, courseID); err != nil && errors.Cause(err) != ErrNotFound {
			svc.logger.Warn(fmt.Sprintf("purging quiz unlock record %s: %v", Key(userID, courseID), err), err)
		}
		return Record{}, false
	}
	return rec, true
}

// MarkShown records the popup as shown now, expiring after the service TTL.
func (svc *Service) MarkShown(ctx context.Context, userID string, courseID course.ID) (Record, error) {
	now := nowFunc().UTC()
	rec := Record{
		UserID:    userID,
		CourseID:  courseID,
		Shown:     true,
		Timestamp: now,
		ExpiresAt: now.Add(svc.ttl),
	}
	if err := svc.repo.SaveRecord(ctx, rec); err != nil {
		return Record{}, errors.Wrap(err, "saving quiz unlock record")
	}
	return rec, nil
}

// Reset forgets the record, so the popup may show again.
func (svc *Service) Reset(ctx context.Context, userID string, courseID course.ID) error {
	err := svc.repo.DeleteRecord(ctx, userID, courseID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "deleting quiz unlock record")
	}
	return nil
}

func (svc *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := svc.repo.DeleteExpiredRecords(ctx, nowFunc().UTC())
	if err != nil {
		return n, errors.Wrap(err, "purging expired quiz unlock records")
	}
	return n, nil
}
