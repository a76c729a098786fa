package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Is(t *testing.T) {
	wrapped := fmt.Errorf("start: %w", ErrMaxAttemptsReached)
	assert.ErrorIs(t, wrapped, ErrMaxAttemptsReached)
	assert.NotErrorIs(t, wrapped, ErrAttemptCompleted)
	assert.ErrorIs(t, StateError("maximum attempts reached"), ErrMaxAttemptsReached)

	cause := errors.New("field missing")
	v := WrapValidation("invalid exam settings", cause)
	assert.ErrorIs(t, v, cause)
	assert.Equal(t, KindValidation, KindOf(v))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrNotGroupMember, http.StatusForbidden},
		{ErrActivityNotFound, http.StatusNotFound},
		{ErrTimeLimitExceeded, http.StatusConflict},
		{ErrQuestionNotInAttempt, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, StatusOf(KindOf(tc.err)))
		})
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		kind    ErrorKind
		message string
	}{
		{"state", fmt.Errorf("submit: %w", ErrAttemptCompleted), http.StatusConflict, KindState, "attempt already completed"},
		{"validation", ValidationError("choice index %d is out of range", 7), http.StatusBadRequest, KindValidation, "choice index 7 is out of range"},
		{"unclassified", errors.New("db down"), http.StatusInternalServerError, "", "Internal server error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			RespondError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.status, resp.Code)
			assert.Equal(t, tc.kind, resp.Kind)
			assert.Equal(t, tc.message, resp.Message)
		})
	}
}
