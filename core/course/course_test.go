package course

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(ss ...string) []ID {
	r := make([]ID, 0, len(ss))
	for _, s := range ss {
		r = append(r, ID(s))
	}
	return r
}

func TestIsAccessible(t *testing.T) {
	order := ids("v1", "v2", "v3")

	tests := []struct {
		name       string
		video      ID
		watched    IDSet
		sequential bool
		want       bool
	}{
		{name: "first video, nothing watched", video: "v1", watched: NewIDSet(), sequential: true, want: true},
		{name: "second video, nothing watched", video: "v2", watched: NewIDSet(), sequential: true, want: false},
		{name: "second video, first watched", video: "v2", watched: NewIDSet("v1"), sequential: true, want: true},
		{name: "third video, first watched", video: "v3", watched: NewIDSet("v1"), sequential: true, want: false},
		{name: "third video, only second watched", video: "v3", watched: NewIDSet("v2"), sequential: true, want: true},
		{name: "unknown video", video: "v9", watched: NewIDSet("v1", "v2", "v3"), sequential: true, want: false},
		{name: "padded id", video: " v2 ", watched: NewIDSet(" v1"), sequential: true, want: true},
		{name: "non-sequential, nothing watched", video: "v3", watched: NewIDSet(), want: true},
		{name: "non-sequential, unknown video", video: "v9", watched: nil, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAccessible(tt.video, order, tt.watched, tt.sequential); got != tt.want {
				t.Errorf("IsAccessible() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name    string
		course  []ID
		watched IDSet
		want    int
	}{
		{name: "empty course", course: nil, watched: NewIDSet("1"), want: 0},
		{name: "nothing watched", course: ids("1", "2", "3"), watched: NewIDSet(), want: 0},
		{name: "one of three", course: ids("1", "2", "3"), watched: NewIDSet("1"), want: 33},
		{name: "two of three", course: ids("1", "2", "3"), watched: NewIDSet("1", "2"), want: 67},
		{name: "all", course: ids("1", "2", "3"), watched: NewIDSet("1", "2", "3"), want: 100},
		{name: "other courses ignored", course: ids("1", "2"), watched: NewIDSet("1", "7", "8", "9"), want: 50},
		{name: "duplicates count once", course: ids("1", "1", "2"), watched: NewIDSet("1"), want: 50},
		{name: "four of five", course: ids("1", "2", "3", "4", "5"), watched: NewIDSet("1", "2", "3", "4"), want: 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeProgress(tt.course, tt.watched)
			if got != tt.want {
				t.Errorf("ComputeProgress() = %v; want %v", got, tt.want)
			}
			if again := ComputeProgress(tt.course, tt.watched); again != got {
				t.Errorf("ComputeProgress() not idempotent: %v then %v", got, again)
			}
		})
	}
}

func TestComputeProgress_monotonic(t *testing.T) {
	course := ids("1", "2", "3", "4", "5", "6", "7")
	watched := NewIDSet("x", "y")
	prev := ComputeProgress(course, watched)
	for _, id := range course {
		watched.Add(id)
		got := ComputeProgress(course, watched)
		if got < prev || got < 0 || got > 100 {
			t.Fatalf("ComputeProgress() after adding %s = %d; previous %d", id, got, prev)
		}
		prev = got
	}
	assert.Equal(t, 100, prev)
}

func TestShouldShowQuiz(t *testing.T) {
	tests := []struct {
		name       string
		progress   int
		sequential bool
		hasQuiz    bool
		want       bool
	}{
		{name: "79% non-sequential", progress: 79, want: false, hasQuiz: true},
		{name: "80% non-sequential", progress: 80, want: true, hasQuiz: true},
		{name: "80% no quiz content", progress: 80, want: false},
		{name: "99% sequential", progress: 99, sequential: true, hasQuiz: true, want: false},
		{name: "100% sequential", progress: 100, sequential: true, hasQuiz: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldShowQuiz(tt.progress, tt.sequential, tt.hasQuiz); got != tt.want {
				t.Errorf("ShouldShowQuiz() = %v; want %v", got, tt.want)
			}
		})
	}
	assert.Equal(t, 100, QuizThreshold(true))
	assert.Equal(t, 80, QuizThreshold(false))
}

// 5 videos, non-sequential: the 4th watched video flips the quiz on.
func TestScenario_nonSequentialUnlock(t *testing.T) {
	course := ids("1", "2", "3", "4", "5")
	watched := NewIDSet()

	var shown []bool
	for _, id := range course[:4] {
		watched.Add(id)
		shown = append(shown, ShouldShowQuiz(ComputeProgress(course, watched), false, true))
	}
	assert.Equal(t, []bool{false, false, false, true}, shown)
	assert.Equal(t, 80, ComputeProgress(course, watched))
}

// 3 videos, sequential: watching in order yields 33, 67, 100 and only 100 unlocks.
func TestScenario_sequentialUnlock(t *testing.T) {
	course := ids("v1", "v2", "v3")
	watched := NewIDSet()

	var progress []int
	var shown []bool
	for _, id := range course {
		require.True(t, IsAccessible(id, course, watched, true), "video %s should be accessible", id)
		watched.Add(id)
		p := ComputeProgress(course, watched)
		progress = append(progress, p)
		shown = append(shown, ShouldShowQuiz(p, true, true))
	}
	assert.Equal(t, []int{33, 67, 100}, progress)
	assert.Equal(t, []bool{false, false, true}, shown)
}

func TestCourse_decode(t *testing.T) {
	data := []byte(`{
		"id": 12,
		"title": "",
		"is_sequential": 1,
		"price": "0.00",
		"sections": [
			{"id": 1, "title": "Intro", "videos": [{"id": 3, "title": "Hello"}, {"id": null}]},
			{"id": "2", "videos": [{"id": "4"}, {"id": 5.0}]}
		]
	}`)

	var c Course
	require.NoError(t, json.Unmarshal(data, &c))

	assert.Equal(t, ID("12"), c.ID)
	assert.True(t, bool(c.IsSequential))
	assert.True(t, c.IsFree())
	assert.Equal(t, ids("3", "4", "5"), c.VideoIDs())
	assert.Equal(t, "N/A", c.TitleOr("N/A"))

	v, pos, err := c.FindVideo("4")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, "N/A", v.TitleOr("N/A"))

	_, _, err = c.FindVideo("99")
	assert.Equal(t, ErrVideoNotFound, err)
}

func TestID_numberAndStringMatch(t *testing.T) {
	var fromNum, fromStr []ID
	require.NoError(t, json.Unmarshal([]byte(`[1, 22, 3]`), &fromNum))
	require.NoError(t, json.Unmarshal([]byte(`["1", "22", " 3 "]`), &fromStr))
	assert.Equal(t, fromNum, fromStr)

	set := NewIDSet(fromNum...)
	assert.True(t, set.Has("22"))
	assert.Equal(t, ids("1", "3", "22"), set.Slice())
}

func TestFlag_decode(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{in: `1`, want: true},
		{in: `0`},
		{in: `true`, want: true},
		{in: `"1"`, want: true},
		{in: `null`},
		{in: `2`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f Flag
			err := json.Unmarshal([]byte(tt.in), &f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v; wantErr %v", err, tt.wantErr)
			}
			if bool(f) != tt.want {
				t.Errorf("Flag = %v; want %v", f, tt.want)
			}
		})
	}
}
