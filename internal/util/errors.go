package util

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindAuthentication ErrorKind = "AuthenticationError"
	KindAuthorization  ErrorKind = "AuthorizationError"
	KindNotFound       ErrorKind = "NotFoundError"
	KindState          ErrorKind = "StateError"
	KindValidation     ErrorKind = "ValidationError"
)

// AppError 引擎对外返回的错误，Kind 决定 HTTP 状态码
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同类同消息视为同一错误，便于 errors.Is 比较哨兵
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind ErrorKind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func AuthenticationError(format string, args ...interface{}) *AppError {
	return newError(KindAuthentication, format, args...)
}

func AuthorizationError(format string, args ...interface{}) *AppError {
	return newError(KindAuthorization, format, args...)
}

func NotFoundError(format string, args ...interface{}) *AppError {
	return newError(KindNotFound, format, args...)
}

func StateError(format string, args ...interface{}) *AppError {
	return newError(KindState, format, args...)
}

func ValidationError(format string, args ...interface{}) *AppError {
	return newError(KindValidation, format, args...)
}

// WrapValidation 保留原始校验错误
func WrapValidation(message string, err error) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Err: err}
}

var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrAttemptNotInProgress = errors.New("attempt not in progress")
	ErrActiveAttemptExists  = errors.New("active attempt already exists")
)

var (
	ErrUnauthenticated      = AuthenticationError("authentication required")
	ErrNotGroupMember       = AuthorizationError("not a member of this group")
	ErrActivityNotFound     = NotFoundError("activity not found")
	ErrAttemptNotFound      = NotFoundError("attempt not found")
	ErrMaxAttemptsReached   = StateError("maximum attempts reached")
	ErrAttemptCompleted     = StateError("attempt already completed")
	ErrTimeLimitExceeded    = StateError("time limit exceeded")
	ErrScenarioClosed       = StateError("scenario is not open")
	ErrNoMoreScenarios      = StateError("no more scenarios")
	ErrOperationFailed      = StateError("operation failed")
	ErrInvalidSettings      = ValidationError("invalid activity settings")
	ErrQuestionNotInAttempt = ValidationError("question is not part of this attempt")
)

// KindOf 非 AppError 返回空
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func StatusOf(kind ErrorKind) int {
	switch kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindState:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
