package progress

import (
	"context"
	"fmt"
	"time"
)

// Run purges expired unlock records, retries pending marks and evicts idle sessions
// every JanitorInterval until ctx is done.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.opts.JanitorInterval)
	defer ticker.Stop()

	t.logger.Info(fmt.Sprintf("tracker janitor running every %s", t.opts.JanitorInterval))
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracker janitor stopped")
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick runs one janitor pass.
func (t *Tracker) Tick(ctx context.Context) {
	if n, err := t.unlocks.PurgeExpired(ctx); err != nil {
		t.logger.Error(err.Error(), err)
	} else if n > 0 {
		t.logger.Info(fmt.Sprintf("purged %d expired quiz unlock records", n))
	}
	t.RetryPending(ctx)
	if n := t.EvictIdle(); n > 0 {
		t.logger.Debug(fmt.Sprintf("evicted %d idle sessions", n))
	}
}

// RetryPending retries due "mark watched" calls. A mark that keeps failing after
// RetryAttempts attempts is reverted: the video leaves the watched set and the session
// goes stale. It returns the number of marks acknowledged by the remote API.
func (t *Tracker) RetryPending(ctx context.Context) int {
	var acked int
	for _, m := range t.pending.due(nowFunc()) {
		err := t.remote.MarkWatched(ctx, m.Learner.Token, m.VideoID)
		if err == nil {
			acked++
			t.pending.remove(m.ID)
			t.resync(ctx, m)
			continue
		}

		m.Attempts++
		if m.Attempts >= t.opts.RetryAttempts {
			t.pending.remove(m.ID)
			t.logger.Error(fmt.Sprintf(
				"giving up marking video %s watched for user %s after %d attempts: %v",
				m.VideoID, m.Learner.ID, m.Attempts, err,
			), err)
			t.revert(ctx, m)
			continue
		}
		m.NextAttempt = nowFunc().Add(backoff(m.Attempts, t.opts.RetryBase, t.opts.RetryMax))
		t.pending.update(m)
	}
	return acked
}

func (t *Tracker) resync(ctx context.Context, m pendingMark) {
	s := t.lookup(m.Learner.ID, m.CourseID)
	if s == nil {
		return
	}
	if err := t.reconcile(ctx, m.Learner, s); err != nil {
		t.logger.Warn(fmt.Sprintf("reconciling course %s for user %s: %v", m.CourseID, m.Learner.ID, err), err)
	}
}

func (t *Tracker) revert(ctx context.Context, m pendingMark) {
	s := t.lookup(m.Learner.ID, m.CourseID)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.unconfirmed.Remove(m.VideoID)
	s.watched.Remove(m.VideoID)
	s.stale = true
	s.mu.Unlock()
	t.resync(ctx, m)
}

// EvictIdle drops sessions unused for SessionIdle. Sessions with pending marks stay.
func (t *Tracker) EvictIdle() int {
	if t.opts.SessionIdle <= 0 {
		return 0
	}
	now := nowFunc()

	t.mu.Lock()
	defer t.mu.Unlock()

	var n int
	for key, s := range t.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastUsed) > t.opts.SessionIdle && !s.changing
		s.mu.Unlock()
		if idle && !t.pending.hasCourse(s.userID, s.courseID) {
			delete(t.sessions, key)
			n++
		}
	}
	return n
}

// Pending returns the number of "mark watched" calls awaiting a retry.
func (t *Tracker) Pending() int {
	return t.pending.len()
}
