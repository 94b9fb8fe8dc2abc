// Package progress mirrors a learner's course progress held by the remote
// e-learning API: it gates video selection, recomputes and pushes the progress
// percentage, and drives the quiz unlock state machine.
package progress

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/course"
	"github.com/trezcool/coursetrack/core/unlock"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrVideoLocked = errors.New("video is locked")
	ErrQuizLocked  = errors.New("quiz is locked")
)

// Remote is the e-learning REST API holding the truth about courses and watched videos.
type Remote interface {
	GetCourse(ctx context.Context, token string, courseID course.ID) (course.Course, error)
	GetWatchedVideos(ctx context.Context, token string) ([]course.ID, error)
	MarkWatched(ctx context.Context, token string, videoID course.ID) error
	GetProgress(ctx context.Context, token string, courseID course.ID) (int, error)
	UpdateProgress(ctx context.Context, token string, courseID course.ID, progress int) error
	// GetQuiz returns nil when the course has no quiz.
	GetQuiz(ctx context.Context, token string, courseID course.ID) (*course.Quiz, error)
}

// Learner is the authenticated user a request is made for.
type Learner struct {
	ID         string
	Name       string
	Email      string
	Token      string        // forwarded to the remote API
	Translator ut.Translator // locale for notices
}

type Options struct {
	Thresholds      course.Thresholds
	StaleAfter      time.Duration
	SessionIdle     time.Duration
	RetryBase       time.Duration
	RetryMax        time.Duration
	RetryAttempts   int
	JanitorInterval time.Duration
}

// NewOptions maps the app config onto tracker options.
func NewOptions(conf *core.Config) Options {
	return Options{
		Thresholds: course.Thresholds{
			Default:    conf.Quiz.Threshold,
			Sequential: conf.Quiz.SequentialThreshold,
		},
		StaleAfter:      conf.Tracker.StaleAfter,
		SessionIdle:     conf.Tracker.SessionIdle,
		RetryBase:       conf.Tracker.RetryBase,
		RetryMax:        conf.Tracker.RetryMax,
		RetryAttempts:   conf.Tracker.RetryAttempts,
		JanitorInterval: conf.Tracker.JanitorInterval,
	}
}

func (o Options) withDefaults() Options {
	if o.Thresholds.Default <= 0 {
		o.Thresholds.Default = course.DefaultThresholds.Default
	}
	if o.Thresholds.Sequential <= 0 {
		o.Thresholds.Sequential = course.DefaultThresholds.Sequential
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 2 * time.Second
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 2 * time.Minute
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 5
	}
	if o.JanitorInterval <= 0 {
		o.JanitorInterval = time.Minute
	}
	return o
}

type Tracker struct {
	remote  Remote
	unlocks *unlock.Service
	mailSvc core.EmailService
	logger  core.Logger
	opts    Options
	pending *pendingQueue

	mu       sync.Mutex
	sessions map[string]*session
}

// NewTracker builds a tracker. mailSvc may be nil to disable unlock emails.
func NewTracker(remote Remote, unlocks *unlock.Service, mailSvc core.EmailService, logger core.Logger, opts Options) *Tracker {
	return &Tracker{
		remote:   remote,
		unlocks:  unlocks,
		mailSvc:  mailSvc,
		logger:   logger,
		opts:     opts.withDefaults(),
		pending:  newPendingQueue(),
		sessions: make(map[string]*session),
	}
}

func (t *Tracker) Thresholds() course.Thresholds {
	return t.opts.Thresholds
}

// View returns the learner's view of the course, refreshing it from the remote API when stale.
func (t *Tracker) View(ctx context.Context, l Learner, courseID course.ID) (View, error) {
	s, err := t.session(ctx, l, courseID)
	if err != nil {
		return View{}, err
	}
	if err = t.refresh(ctx, l, s, false); err != nil {
		return View{}, err
	}
	return t.render(s, l), nil
}

// Reconcile refetches the watched list and re-evaluates progress and unlock state.
func (t *Tracker) Reconcile(ctx context.Context, l Learner, courseID course.ID) (View, error) {
	s, err := t.session(ctx, l, courseID)
	if err != nil {
		return View{}, err
	}
	if err = t.refresh(ctx, l, s, true); err != nil {
		return View{}, err
	}
	return t.render(s, l), nil
}

// SelectVideo makes the video current. Selecting the current video, or selecting
// while another selection is in flight, changes nothing. A locked video is refused
// with ErrVideoLocked. An unwatched video is marked watched optimistically; the
// remote call is retried in the background when it fails.
func (t *Tracker) SelectVideo(ctx context.Context, l Learner, courseID, videoID course.ID) (View, error) {
	videoID = course.NormalizeID(string(videoID))
	s, err := t.session(ctx, l, courseID)
	if err != nil {
		return View{}, err
	}
	if err = t.refresh(ctx, l, s, false); err != nil {
		return View{}, err
	}

	s.mu.Lock()
	if s.current == videoID || s.changing {
		view := s.render(t.opts.Thresholds, l.Translator)
		s.mu.Unlock()
		return view, nil
	}
	if _, _, err = s.course.FindVideo(videoID); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	if !course.IsAccessible(videoID, s.course.VideoIDs(), s.watched, bool(s.course.IsSequential)) {
		s.mu.Unlock()
		msg := core.Notice(l.Translator, core.NoticeVideoLocked)
		return View{}, core.NewNoticeError(ErrVideoLocked, core.NoticeVideoLocked, msg)
	}
	s.changing = true
	s.generation++
	s.current = videoID
	needsMark := !s.watched.Has(videoID)
	if needsMark {
		s.watched.Add(videoID)
		s.unconfirmed.Add(videoID)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.changing = false
		s.mu.Unlock()
	}()

	if needsMark && !t.pending.has(l.ID, videoID) {
		if err = t.remote.MarkWatched(ctx, l.Token, videoID); err != nil {
			t.logger.Warn(fmt.Sprintf("marking video %s watched for user %s: %v", videoID, l.ID, err), err)
			t.pending.add(pendingMark{
				Learner:     l,
				CourseID:    courseID,
				VideoID:     videoID,
				Attempts:    1,
				NextAttempt: nowFunc().Add(backoff(1, t.opts.RetryBase, t.opts.RetryMax)),
			})
		}
	}

	if err = t.reconcile(ctx, l, s); err != nil {
		// the optimistic state stands until the next successful refresh
		t.logger.Warn(fmt.Sprintf("reconciling course %s for user %s: %v", courseID, l.ID, err), err)
	}

	view := t.render(s, l)
	view.Changed = true
	return view, nil
}

// Quiz returns the course quiz once the learner reached the threshold.
// A due unlock popup stays due for the next view.
func (t *Tracker) Quiz(ctx context.Context, l Learner, courseID course.ID) (*course.Quiz, error) {
	s, err := t.session(ctx, l, courseID)
	if err != nil {
		return nil, err
	}
	if err = t.refresh(ctx, l, s, false); err != nil {
		return nil, err
	}

	s.mu.Lock()
	available := s.state.QuizAvailable()
	threshold := t.opts.Thresholds.For(bool(s.course.IsSequential))
	s.mu.Unlock()

	if !available {
		msg := core.Notice(l.Translator, core.NoticeQuizLocked, strconv.Itoa(threshold))
		return nil, core.NewNoticeError(ErrQuizLocked, core.NoticeQuizLocked, msg)
	}

	quiz, err := t.remote.GetQuiz(ctx, l.Token, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching quiz")
	}
	if !quiz.HasContent() {
		msg := core.Notice(l.Translator, core.NoticeQuizLocked, strconv.Itoa(threshold))
		return nil, core.NewNoticeError(ErrQuizLocked, core.NoticeQuizLocked, msg)
	}
	return quiz, nil
}

// ResetQuizUnlock forgets the unlock record so the popup fires again on the next evaluation.
func (t *Tracker) ResetQuizUnlock(ctx context.Context, userID string, courseID course.ID) error {
	if err := t.unlocks.Reset(ctx, userID, courseID); err != nil {
		return err
	}
	if s := t.lookup(userID, courseID); s != nil {
		s.mu.Lock()
		s.stale = true
		s.mu.Unlock()
	}
	return nil
}

func sessionKey(userID string, courseID course.ID) string {
	return userID + ":" + string(courseID)
}

func (t *Tracker) lookup(userID string, courseID course.ID) *session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[sessionKey(userID, courseID)]
}

// session returns the learner's session for the course, loading the course on first use.
func (t *Tracker) session(ctx context.Context, l Learner, courseID course.ID) (*session, error) {
	key := sessionKey(l.ID, courseID)

	t.mu.Lock()
	s, ok := t.sessions[key]
	if !ok {
		s = newSession(l.ID, courseID)
		t.sessions[key] = s
	}
	t.mu.Unlock()

	if err := t.load(ctx, l, s); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lastUsed = nowFunc()
	s.mu.Unlock()
	return s, nil
}

func (t *Tracker) load(ctx context.Context, l Learner, s *session) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}

	crs, err := t.remote.GetCourse(ctx, l.Token, s.courseID)
	if err != nil {
		return errors.Wrapf(err, "fetching course %s", s.courseID)
	}
	if crs.ID == "" {
		crs.ID = s.courseID
	}

	stored, err := t.remote.GetProgress(ctx, l.Token, s.courseID)
	if err != nil {
		t.logger.Warn(fmt.Sprintf("fetching progress of course %s: %v", s.courseID, err), err)
		stored = 0
	}

	s.mu.Lock()
	s.course = crs
	s.progress = stored
	s.loaded = true
	s.stale = true
	s.mu.Unlock()

	t.fetchQuiz(ctx, l, s)
	return nil
}

// fetchQuiz records whether the course has quiz content. A failed fetch leaves it
// unknown, so the next reconcile asks again.
func (t *Tracker) fetchQuiz(ctx context.Context, l Learner, s *session) {
	quiz, err := t.remote.GetQuiz(ctx, l.Token, s.courseID)
	if err != nil {
		t.logger.Warn(fmt.Sprintf("fetching quiz of course %s: %v", s.courseID, err), err)
		return
	}
	s.mu.Lock()
	s.hasQuiz = quiz.HasContent()
	s.quizKnown = true
	s.mu.Unlock()
}

// refresh reconciles when forced or when the cached watched list is stale. Once a session
// has been fetched, refresh failures are logged and the cached view is served.
func (t *Tracker) refresh(ctx context.Context, l Learner, s *session, force bool) error {
	s.mu.Lock()
	needed := force || s.needsRefresh(nowFunc(), t.opts.StaleAfter)
	fetched := !s.fetchedAt.IsZero()
	s.mu.Unlock()

	if !needed {
		return nil
	}
	err := t.reconcile(ctx, l, s)
	if err != nil && fetched {
		t.logger.Warn(fmt.Sprintf("refreshing course %s for user %s: %v", s.courseID, l.ID, err), err)
		return nil
	}
	return err
}

// reconcile is the only place progress and unlock state are derived: it fetches the
// watched list, merges unconfirmed local marks, recomputes the progress, pushes it when
// it changed, and evaluates the unlock state. A result superseded by a newer selection is dropped.
func (t *Tracker) reconcile(ctx context.Context, l Learner, s *session) error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	remoteWatched, err := t.remote.GetWatchedVideos(ctx, l.Token)
	if err != nil {
		s.mu.Lock()
		s.stale = true
		s.mu.Unlock()
		return errors.Wrap(err, "fetching watched videos")
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		t.logger.Debug(fmt.Sprintf("dropping superseded watched list for course %s, user %s", s.courseID, l.ID))
		return nil
	}
	s.applyWatched(remoteWatched, nowFunc())
	computed := course.ComputeProgress(s.course.VideoIDs(), s.watched)
	changed := computed != s.progress
	s.progress = computed
	quizKnown := s.quizKnown
	s.mu.Unlock()

	if !quizKnown {
		t.fetchQuiz(ctx, l, s)
	}

	if changed {
		if err = t.remote.UpdateProgress(ctx, l.Token, s.courseID, computed); err != nil {
			// no rollback: the next change pushes again
			t.logger.Warn(fmt.Sprintf("pushing progress %d of course %s for user %s: %v", computed, s.courseID, l.ID, err), err)
		}
	}

	t.evaluate(ctx, l, s)
	return nil
}

// evaluate runs the unlock state machine on the session's current progress.
func (t *Tracker) evaluate(ctx context.Context, l Learner, s *session) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	s.mu.Lock()
	in := Inputs{
		Progress:  s.progress,
		Threshold: t.opts.Thresholds.For(bool(s.course.IsSequential)),
		HasQuiz:   s.hasQuiz,
	}
	crs := s.course
	s.mu.Unlock()

	if in.HasQuiz && in.Progress >= in.Threshold {
		_, in.PopupActive = t.unlocks.Active(ctx, l.ID, crs.ID)
	}
	state := Evaluate(in)

	popup := false
	if state == ThresholdReached {
		popup = true
		if _, err := t.unlocks.MarkShown(ctx, l.ID, crs.ID); err != nil {
			// the email goes out with the first recorded unlock
			t.logger.Error(fmt.Sprintf("recording quiz unlock of course %s for user %s: %v", crs.ID, l.ID, err), err)
		} else {
			state = PopupShown
			t.notifyUnlocked(l, crs, in.Progress)
		}
	}

	s.mu.Lock()
	s.state = state
	if popup {
		s.popup = true
	}
	s.mu.Unlock()
}

func (t *Tracker) notifyUnlocked(l Learner, crs course.Course, progress int) {
	if t.mailSvc == nil || l.Email == "" {
		return
	}
	title := crs.TitleOr(core.Notice(l.Translator, core.NoticeNotAvailable))
	t.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: l.Name, Address: l.Email}},
		Subject:     core.Notice(l.Translator, core.NoticeUnlockEmailSubject, title),
		TextContent: core.Notice(l.Translator, core.NoticeUnlockEmailBody, strconv.Itoa(progress), title),
	})
}

func (t *Tracker) render(s *session, l Learner) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render(t.opts.Thresholds, l.Translator)
}
