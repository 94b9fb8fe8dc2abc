package progress

import (
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/course"
)

// session is the cached view of one learner's progress through one course.
// It mirrors server truth: watched is the last fetched remote list plus the
// ids watched locally and not yet confirmed by the remote list.
type session struct {
	loadMu sync.Mutex // held while loading the course
	evalMu sync.Mutex // serializes unlock state evaluations

	mu          sync.Mutex
	userID      string
	courseID    course.ID
	loaded      bool
	course      course.Course
	hasQuiz     bool
	quizKnown   bool // hasQuiz came from a successful quiz fetch
	watched     course.IDSet
	unconfirmed course.IDSet
	progress    int // last value fetched from or pushed to the remote API
	state       State
	current     course.ID
	changing    bool   // a video selection is in flight
	generation  uint64 // bumped by every selection; stale responses are dropped
	fetchedAt   time.Time
	stale       bool
	lastUsed    time.Time
	popup       bool // the unlock popup is due on the next rendered view
}

func newSession(userID string, courseID course.ID) *session {
	return &session{
		userID:      userID,
		courseID:    courseID,
		watched:     course.NewIDSet(),
		unconfirmed: course.NewIDSet(),
		stale:       true,
		lastUsed:    nowFunc(),
	}
}

// applyWatched replaces the cached watched set with the remote list,
// keeping unconfirmed local ids on top. Unconfirmed ids found remotely are confirmed.
// Callers hold s.mu.
func (s *session) applyWatched(remote []course.ID, now time.Time) {
	watched := course.NewIDSet(remote...)
	for id := range s.unconfirmed {
		if watched.Has(id) {
			delete(s.unconfirmed, id)
			continue
		}
		watched.Add(id)
	}
	s.watched = watched
	s.fetchedAt = now
	s.stale = false
}

// needsRefresh: callers hold s.mu.
func (s *session) needsRefresh(now time.Time, staleAfter time.Duration) bool {
	if s.stale || s.fetchedAt.IsZero() {
		return true
	}
	return staleAfter > 0 && now.Sub(s.fetchedAt) > staleAfter
}

// render builds the learner-facing view and consumes a due popup. Callers hold s.mu.
func (s *session) render(th course.Thresholds, trans ut.Translator) View {
	notAvailable := core.Notice(trans, core.NoticeNotAvailable)
	seq := bool(s.course.IsSequential)
	order := s.course.VideoIDs()

	videos := make([]VideoView, 0, len(order))
	for _, sec := range s.course.Sections {
		for _, v := range sec.Videos {
			if v.ID == "" {
				continue
			}
			videos = append(videos, VideoView{
				ID:           v.ID,
				SectionID:    sec.ID,
				SectionTitle: sectionTitle(sec, notAvailable),
				Title:        v.TitleOr(notAvailable),
				Description:  v.Description,
				URL:          v.URL,
				Duration:     v.Duration,
				Watched:      s.watched.Has(v.ID),
				Unconfirmed:  s.unconfirmed.Has(v.ID),
				Locked:       !course.IsAccessible(v.ID, order, s.watched, seq),
			})
		}
	}

	view := View{
		CourseID:      s.course.ID,
		Title:         s.course.TitleOr(notAvailable),
		IsSequential:  seq,
		IsFree:        s.course.IsFree(),
		Progress:      s.progress,
		Threshold:     th.For(seq),
		State:         s.state,
		QuizAvailable: s.state.QuizAvailable(),
		CurrentVideo:  s.current,
		Videos:        videos,
		Unconfirmed:   s.unconfirmed.Slice(),
		FetchedAt:     s.fetchedAt,
		Stale:         s.stale,
	}
	if s.popup {
		view.Popup = true
		view.Notice = core.Notice(trans, core.NoticeQuizUnlocked, view.Title)
		s.popup = false
	}
	return view
}

func sectionTitle(sec course.Section, fallback string) string {
	if sec.Title != "" {
		return sec.Title
	}
	return fallback
}

// VideoView is a video with its watched & lock status.
type VideoView struct {
	ID           course.ID `json:"id"`
	SectionID    course.ID `json:"section_id"`
	SectionTitle string    `json:"section_title"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	URL          string    `json:"url"`
	Duration     int       `json:"duration"`
	Watched      bool      `json:"watched"`
	Unconfirmed  bool      `json:"unconfirmed"`
	Locked       bool      `json:"locked"`
}

// View is what the learner sees of a course: locks, progress bar and quiz button.
type View struct {
	CourseID      course.ID   `json:"course_id"`
	Title         string      `json:"title"`
	IsSequential  bool        `json:"is_sequential"`
	IsFree        bool        `json:"is_free"`
	Progress      int         `json:"progress"`
	Threshold     int         `json:"threshold"`
	State         State       `json:"state"`
	QuizAvailable bool        `json:"quiz_available"`
	Popup         bool        `json:"popup"`
	Notice        string      `json:"notice,omitempty"`
	CurrentVideo  course.ID   `json:"current_video,omitempty"`
	Changed       bool        `json:"changed"`
	Videos        []VideoView `json:"videos"`
	Unconfirmed   []course.ID `json:"unconfirmed"`
	FetchedAt     time.Time   `json:"fetched_at"`
	Stale         bool        `json:"stale"`
}
