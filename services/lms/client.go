// Package lmssvc talks to the e-learning REST API that owns courses, watched videos and progress.
package lmssvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/course"
	"github.com/trezcool/coursetrack/core/progress"
)

var ErrNotFound = errors.New("remote resource not found")

// APIError is a non-2xx answer of the remote API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	http    *rest.Client
	logger  core.Logger
}

var _ progress.Remote = (*Client)(nil) // interface compliance check

func NewClient(baseURL string, timeout time.Duration, logger core.Logger) (*Client, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(baseURL, "baseURL"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "creating remote API client")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.Wrapf(err, "parsing remote API base URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		logger:  logger,
	}, nil
}

func (c *Client) do(ctx context.Context, method rest.Method, token, path string, body, dst interface{}) error {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Body = b
		req.Headers["Content-Type"] = "application/json"
	}

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return errors.Wrapf(err, "building %s %s", method, path)
	}
	httpRes, err := c.http.HTTPClient.Do(httpReq.WithContext(ctx))
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", method, path)
	}

	if res.StatusCode == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, "%s %s", method, path)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{Method: string(method), Path: path, StatusCode: res.StatusCode, Body: res.Body}
	}
	if dst == nil || strings.TrimSpace(res.Body) == "" {
		return nil
	}
	if err = json.Unmarshal([]byte(res.Body), dst); err != nil {
		return errors.Wrapf(err, "decoding %s %s", method, path)
	}
	return nil
}

func coursePath(courseID course.ID, suffix string) string {
	return "/courses/" + url.PathEscape(string(courseID)) + suffix
}

func (c *Client) GetCourse(ctx context.Context, token string, courseID course.ID) (course.Course, error) {
	var crs course.Course
	if err := c.do(ctx, rest.Get, token, coursePath(courseID, ""), nil, &crs); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (c *Client) GetWatchedVideos(ctx context.Context, token string) ([]course.ID, error) {
	var payload struct {
		WatchedVideos []course.ID `json:"watched_videos"`
	}
	if err := c.do(ctx, rest.Get, token, "/videos/watched", nil, &payload); err != nil {
		return nil, err
	}
	ids := make([]course.ID, 0, len(payload.WatchedVideos))
	for _, id := range payload.WatchedVideos {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Client) MarkWatched(ctx context.Context, token string, videoID course.ID) error {
	return c.do(ctx, rest.Post, token, "/videos/"+url.PathEscape(string(videoID))+"/watch", nil, nil)
}

type progressPayload struct {
	Progress int `json:"progress"`
}

// GetProgress returns the stored progress; a course without any is at 0.
func (c *Client) GetProgress(ctx context.Context, token string, courseID course.ID) (int, error) {
	var payload progressPayload
	if err := c.do(ctx, rest.Get, token, coursePath(courseID, "/progress"), nil, &payload); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return payload.Progress, nil
}

func (c *Client) UpdateProgress(ctx context.Context, token string, courseID course.ID, value int) error {
	return c.do(ctx, rest.Put, token, coursePath(courseID, "/progress"), progressPayload{Progress: value}, nil)
}

// GetQuiz returns nil when the course has no quiz.
func (c *Client) GetQuiz(ctx context.Context, token string, courseID course.ID) (*course.Quiz, error) {
	quiz := new(course.Quiz)
	if err := c.do(ctx, rest.Get, token, coursePath(courseID, "/quiz"), nil, quiz); err != nil {
		if errors.Cause(err) == ErrNotFound {
			c.logger.Debug(fmt.Sprintf("course %s has no quiz", courseID))
			return nil, nil
		}
		return nil, err
	}
	return quiz, nil
}
