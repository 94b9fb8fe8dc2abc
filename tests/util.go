package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/course"
)

// NewCourse builds a single-section course whose videos have the given ids, titled "Video <id>".
func NewCourse(id course.ID, sequential bool, videoIDs ...course.ID) course.Course {
	videos := make([]course.Video, 0, len(videoIDs))
	for _, vid := range videoIDs {
		videos = append(videos, course.Video{ID: vid, Title: "Video " + string(vid)})
	}
	return course.Course{
		ID:           id,
		Title:        "Course " + string(id),
		IsSequential: course.Flag(sequential),
		Sections:     []course.Section{{ID: "1", Title: "Section 1", Videos: videos}},
	}
}

// VideoIDs returns the ids "1".."n".
func VideoIDs(n int) []course.ID {
	ids := make([]course.ID, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, course.ID(strconv.Itoa(i)))
	}
	return ids
}

func NewQuiz(title string) *course.Quiz {
	return &course.Quiz{
		ID:    "1",
		Title: title,
		Questions: []course.Question{
			{ID: "1", Text: "2 + 2 ?", Options: []string{"3", "4"}},
		},
	}
}

func NewTranslators(t *testing.T) *core.Translators {
	t.Helper()
	trans, err := core.NewTranslators()
	if err != nil {
		t.Fatalf("NewTranslators() failed: %v", err)
	}
	return trans
}

// Logger records log messages per level.
type Logger struct {
	mu       sync.Mutex
	Messages map[string][]string
}

var _ core.Logger = (*Logger)(nil) // interface compliance check

func NewLogger() *Logger {
	return &Logger{Messages: make(map[string][]string)}
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	l.Messages[level] = append(l.Messages[level], msg)
	l.mu.Unlock()
}

func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Messages[level])
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

// Mailbox is an in-memory core.EmailService.
type Mailbox struct {
	mu       sync.Mutex
	Messages []*core.EmailMessage
}

var _ core.EmailService = (*Mailbox)(nil) // interface compliance check

func (m *Mailbox) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	m.Messages = append(m.Messages, messages...)
	m.mu.Unlock()
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// ErrRemote is returned by a failing FakeRemote.
var ErrRemote = errors.New("remote unavailable")

// ErrCourseNotFound is returned by FakeRemote.GetCourse for unknown courses.
var ErrCourseNotFound = errors.New("course not found")

// FakeRemote is an in-memory e-learning API for a single learner.
type FakeRemote struct {
	mu         sync.Mutex
	courses    map[course.ID]course.Course
	quizzes    map[course.ID]*course.Quiz
	progress   map[course.ID]int
	watched    course.IDSet
	pushed     []int
	markCalls  int
	markErr    error
	watchedErr error
	pushErr    error
}

func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		courses:  make(map[course.ID]course.Course),
		quizzes:  make(map[course.ID]*course.Quiz),
		progress: make(map[course.ID]int),
		watched:  course.NewIDSet(),
	}
}

func (r *FakeRemote) AddCourse(crs course.Course, quiz *course.Quiz) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses[crs.ID] = crs
	if quiz != nil {
		r.quizzes[crs.ID] = quiz
	}
}

func (r *FakeRemote) SetWatched(ids ...course.ID) {
	r.mu.Lock()
	r.watched = course.NewIDSet(ids...)
	r.mu.Unlock()
}

func (r *FakeRemote) SetProgress(courseID course.ID, progress int) {
	r.mu.Lock()
	r.progress[courseID] = progress
	r.mu.Unlock()
}

func (r *FakeRemote) FailMarks(err error) {
	r.mu.Lock()
	r.markErr = err
	r.mu.Unlock()
}

func (r *FakeRemote) FailWatched(err error) {
	r.mu.Lock()
	r.watchedErr = err
	r.mu.Unlock()
}

func (r *FakeRemote) FailPushes(err error) {
	r.mu.Lock()
	r.pushErr = err
	r.mu.Unlock()
}

func (r *FakeRemote) Watched() []course.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watched.Slice()
}

// Pushed returns the progress values sent with UpdateProgress, in order.
func (r *FakeRemote) Pushed() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.pushed...)
}

func (r *FakeRemote) MarkCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markCalls
}

func (r *FakeRemote) GetCourse(_ context.Context, _ string, courseID course.ID) (course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	crs, ok := r.courses[courseID]
	if !ok {
		return course.Course{}, errors.Wrap(ErrCourseNotFound, fmt.Sprintf("course %s", courseID))
	}
	return crs, nil
}

func (r *FakeRemote) GetWatchedVideos(context.Context, string) ([]course.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchedErr != nil {
		return nil, r.watchedErr
	}
	return r.watched.Slice(), nil
}

func (r *FakeRemote) MarkWatched(_ context.Context, _ string, videoID course.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls++
	if r.markErr != nil {
		return r.markErr
	}
	r.watched.Add(videoID)
	return nil
}

func (r *FakeRemote) GetProgress(_ context.Context, _ string, courseID course.ID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress[courseID], nil
}

func (r *FakeRemote) UpdateProgress(_ context.Context, _ string, courseID course.ID, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed = append(r.pushed, progress)
	if r.pushErr != nil {
		return r.pushErr
	}
	r.progress[courseID] = progress
	return nil
}

func (r *FakeRemote) GetQuiz(_ context.Context, _ string, courseID course.ID) (*course.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quizzes[courseID], nil
}
