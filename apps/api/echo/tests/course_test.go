package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursetrack/core/course"
	"github.com/trezcool/coursetrack/core/progress"
	testutil "github.com/trezcool/coursetrack/tests"
)

func Test_home(t *testing.T) {
	f := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	f.app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to CourseTrack API!", rec.Body.String())
}

func Test_courseApi_auth(t *testing.T) {
	f := setup(t)
	f.remote.AddCourse(testutil.NewCourse("7", false, "1", "2"), nil)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/courses/7", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Invalid token", method: http.MethodGet, path: "/v1/courses/7", token: "not.a.jwt",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Subject required", method: http.MethodGet, path: "/v1/courses/7", token: getToken(t, ""),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{name: "Authed", method: http.MethodGet, path: "/v1/courses/7", token: getToken(t, "42"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_errors(t *testing.T) {
	f := setup(t)
	f.remote.AddCourse(testutil.NewCourse("7", true, "1", "2"), testutil.NewQuiz("Final"))
	token := getToken(t, "42")

	tests := []httpTest{
		{
			name: "Locked video", method: http.MethodPost, path: "/v1/courses/7/videos/2/select", token: token,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "Please watch the previous video first to unlock this one."}),
		},
		{
			name: "Locked video (fr)", method: http.MethodPost, path: "/v1/courses/7/videos/2/select", token: token, lang: "fr-CA,fr;q=0.8",
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "Veuillez d'abord regarder la vidéo précédente pour débloquer celle-ci."}),
		},
		{
			name: "Unknown video", method: http.MethodPost, path: "/v1/courses/7/videos/99/select", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Quiz locked", method: http.MethodGet, path: "/v1/courses/7/quiz", token: token,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "Watch at least 100% of the course to unlock the quiz."}),
		},
		{
			name: "Invalid course id", method: http.MethodGet, path: "/v1/courses/bad!id", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"course": "only alphanumeric characters, dashes and underscores are allowed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			if tt.lang != "" {
				req.Header.Set("Accept-Language", tt.lang)
			}
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
	assert.Equal(t, 0, f.remote.MarkCalls())
}

func Test_courseApi_progress(t *testing.T) {
	f := setup(t)
	f.remote.AddCourse(testutil.NewCourse("7", false, testutil.VideoIDs(5)...), testutil.NewQuiz("Final"))
	token := getToken(t, "42")

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses/7", token)
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.Equal(t, course.ID("7"), view.CourseID)
	assert.Equal(t, progress.Locked, view.State)
	assert.Equal(t, 80, view.Threshold)
	assert.Len(t, view.Videos, 5)

	for _, vid := range []string{"1", "2", "3", "4"} {
		req, rec = newAuthRequest(http.MethodPost, "/v1/courses/7/videos/"+vid+"/select", token)
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	view = decodeView(t, rec)
	assert.Equal(t, 80, view.Progress)
	assert.Equal(t, progress.PopupShown, view.State)
	assert.True(t, view.Popup)
	assert.Equal(t, "Congratulations! You have unlocked the quiz for Course 7.", view.Notice)
	assert.Equal(t, 1, f.mailbox.Len())

	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/7/quiz", token)
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quiz course.Quiz
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quiz))
	assert.Equal(t, "Final", quiz.Title)

	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/7/reconcile", token)
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeView(t, rec).Popup, "popup shows once")

	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/7/quiz-unlock", token)
	f.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/7", token)
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeView(t, rec).Popup, "popup shows again after reset")
}

func Test_cors(t *testing.T) {
	f := setup(t)

	req, rec := newRequest(http.MethodOptions, "/v1/courses/7/reconcile")
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization") // browsers send it lowercased
	f.app.ServeHTTP(rec, req)

	assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))

	req, rec = newRequest(http.MethodOptions, "/v1/courses/7/reconcile")
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	f.app.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
