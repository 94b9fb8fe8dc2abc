package core

import (
	"net/http"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NoticeError is an error carrying a localized, user-facing message.
// Err is the sentinel callers match with errors.Cause.
type NoticeError struct {
	Err     error
	Key     string
	Message string
	Status  int
}

func NewNoticeError(err error, key, msg string, status ...int) error {
	code := http.StatusForbidden
	if len(status) > 0 {
		code = status[0]
	}
	if err == nil {
		err = errors.New(msg)
	}
	return &NoticeError{Err: err, Key: key, Message: msg, Status: code}
}

func (err *NoticeError) Error() string {
	if err.Err == nil {
		return err.Message
	}
	return err.Err.Error()
}

// Cause lets errors.Cause unwrap to the sentinel.
func (err *NoticeError) Cause() error {
	return err.Err
}

// AsNotice finds a NoticeError in err's wrap chain.
func AsNotice(err error) (*NoticeError, bool) {
	for err != nil {
		if ne, ok := err.(*NoticeError); ok {
			return ne, true
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			return nil, false
		}
		err = cause.Cause()
	}
	return nil, false
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
