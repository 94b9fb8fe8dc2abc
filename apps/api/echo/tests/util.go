package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/coursetrack/apps/api/echo"
	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/progress"
	"github.com/trezcool/coursetrack/core/unlock"
	dummydb "github.com/trezcool/coursetrack/storage/database/dummy"
	testutil "github.com/trezcool/coursetrack/tests"
)

const (
	secret = "test-secret"
	origin = "http://localhost:3000"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	app     Server
	remote  *testutil.FakeRemote
	mailbox *testutil.Mailbox
	tracker *progress.Tracker
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := &core.Config{
		TestMode:  true,
		SecretKey: secret,
		Server:    core.ServerConfig{AllowedOrigins: []string{origin}},
	}
	logger := testutil.NewLogger()
	translators := testutil.NewTranslators(t)
	validate := validator.New()
	core.InitValidators(validate, translators.Default)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	unlocks := unlock.NewService(dummydb.NewUnlockRepository(db), unlock.DefaultTTL, logger)

	f := &fixture{
		remote:  testutil.NewFakeRemote(),
		mailbox: &testutil.Mailbox{},
	}
	f.tracker = progress.NewTracker(f.remote, unlocks, f.mailbox, logger, progress.Options{})
	f.app = NewServer(&Deps{
		Conf:        conf,
		Logger:      logger,
		Tracker:     f.tracker,
		Translators: translators,
		Validate:    validate,
	})
	t.Cleanup(func() { _ = f.app.Shutdown(context.Background()) })
	return f
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	lang     string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, userID string) string {
	claims := NewClaims(userID, "jdoe", "Jane Doe", "jane@example.com", time.Hour)
	token, err := GenerateToken(claims, secret)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) progress.View {
	t.Helper()
	var view progress.View
	if !assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view), rec.Body.String()) {
		t.FailNow()
	}
	return view
}
