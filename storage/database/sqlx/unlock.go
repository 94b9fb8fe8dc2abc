package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coursetrack/core/course"
	"github.com/trezcool/coursetrack/core/unlock"
)

type unlockRow struct {
	UserID    string    `db:"user_id"`
	CourseID  string    `db:"course_id"`
	Shown     bool      `db:"shown"`
	ShownAt   null.Time `db:"shown_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (row unlockRow) record() unlock.Record {
	return unlock.Record{
		UserID:    row.UserID,
		CourseID:  course.ID(row.CourseID),
		Shown:     row.Shown,
		Timestamp: row.ShownAt.Time.UTC(),
		ExpiresAt: row.ExpiresAt.UTC(),
	}
}

func newUnlockRow(rec unlock.Record) unlockRow {
	return unlockRow{
		UserID:    rec.UserID,
		CourseID:  string(rec.CourseID),
		Shown:     rec.Shown,
		ShownAt:   null.NewTime(rec.Timestamp.UTC(), !rec.Timestamp.IsZero()),
		ExpiresAt: rec.ExpiresAt.UTC(),
	}
}

type unlockRepository struct {
	db *sqlx.DB
}

var _ unlock.Repository = (*unlockRepository)(nil) // interface compliance check

func NewUnlockRepository(db *sqlx.DB) unlock.Repository {
	return &unlockRepository{db: db}
}

func (repo *unlockRepository) GetRecord(ctx context.Context, userID string, courseID course.ID) (unlock.Record, error) {
	const q = `SELECT user_id, course_id, shown, shown_at, expires_at FROM quiz_unlocks WHERE user_id = $1 AND course_id = $2`

	var row unlockRow
	if err := repo.db.GetContext(ctx, &row, q, userID, string(courseID)); err != nil {
		if err == sql.ErrNoRows {
			return unlock.Record{}, unlock.ErrNotFound
		}
		return unlock.Record{}, errors.Wrap(err, "selecting quiz unlock")
	}
	return row.record(), nil
}

func (repo *unlockRepository) SaveRecord(ctx context.Context, rec unlock.Record) error {
	const q = `INSERT INTO quiz_unlocks (user_id, course_id, shown, shown_at, expires_at)
		VALUES (:user_id, :course_id, :shown, :shown_at, :expires_at)
		ON CONFLICT (user_id, course_id) DO UPDATE
		SET shown = EXCLUDED.shown, shown_at = EXCLUDED.shown_at, expires_at = EXCLUDED.expires_at`

	if _, err := repo.db.NamedExecContext(ctx, q, newUnlockRow(rec)); err != nil {
		return errors.Wrap(err, "upserting quiz unlock")
	}
	return nil
}

func (repo *unlockRepository) DeleteRecord(ctx context.Context, userID string, courseID course.ID) error {
	const q = `DELETE FROM quiz_unlocks WHERE user_id = $1 AND course_id = $2`

	res, err := repo.db.ExecContext(ctx, q, userID, string(courseID))
	if err != nil {
		return errors.Wrap(err, "deleting quiz unlock")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting quiz unlock")
	}
	if n == 0 {
		return unlock.ErrNotFound
	}
	return nil
}

func (repo *unlockRepository) DeleteExpiredRecords(ctx context.Context, now time.Time) (int, error) {
	const q = `DELETE FROM quiz_unlocks WHERE expires_at < $1`

	res, err := repo.db.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired quiz unlocks")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired quiz unlocks")
	}
	return int(n), nil
}
