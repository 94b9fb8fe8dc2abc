package progress

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/coursetrack/core/course"
)

// pendingMark is a "mark watched" call the remote API has not acknowledged yet.
type pendingMark struct {
	ID          uuid.UUID
	Learner     Learner
	CourseID    course.ID
	VideoID     course.ID
	Attempts    int
	NextAttempt time.Time
}

type pendingQueue struct {
	mu    sync.Mutex
	marks map[uuid.UUID]pendingMark
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{marks: make(map[uuid.UUID]pendingMark)}
}

func (q *pendingQueue) add(m pendingMark) uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	q.marks[m.ID] = m
	return m.ID
}

// due returns the marks whose next attempt is at or before now, oldest first.
func (q *pendingQueue) due(now time.Time) []pendingMark {
	q.mu.Lock()
	defer q.mu.Unlock()

	var marks []pendingMark
	for _, m := range q.marks {
		if !m.NextAttempt.After(now) {
			marks = append(marks, m)
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].NextAttempt.Before(marks[j].NextAttempt) })
	return marks
}

func (q *pendingQueue) remove(id uuid.UUID) {
	q.mu.Lock()
	delete(q.marks, id)
	q.mu.Unlock()
}

func (q *pendingQueue) update(m pendingMark) {
	q.mu.Lock()
	if _, ok := q.marks[m.ID]; ok {
		q.marks[m.ID] = m
	}
	q.mu.Unlock()
}

// has reports whether a mark for the video is queued for the learner.
func (q *pendingQueue) has(userID string, videoID course.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, m := range q.marks {
		if m.Learner.ID == userID && m.VideoID == videoID {
			return true
		}
	}
	return false
}

func (q *pendingQueue) hasCourse(userID string, courseID course.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, m := range q.marks {
		if m.Learner.ID == userID && m.CourseID == courseID {
			return true
		}
	}
	return false
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.marks)
}

// backoff is base * 2^(attempts-1), capped at max.
func backoff(attempts int, base, max time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
