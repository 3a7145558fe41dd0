package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "passes a DomainError through",
			err:        NewValidationError("bad input", nil),
			wantCode:   "VALIDATION_FAILED",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unwraps a wrapped DomainError",
			err:        fmt.Errorf("loading ticket: %w", NewNotFound("ticket", nil)),
			wantCode:   "NOT_FOUND",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "maps pgx.ErrNoRows to not found",
			err:        pgx.ErrNoRows,
			wantCode:   "NOT_FOUND",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "wraps unknown errors as internal",
			err:        errors.New("connection reset"),
			wantCode:   "INTERNAL_ERROR",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestInternalErrorHidesDetail(t *testing.T) {
	cause := errors.New("pq: password authentication failed")
	domainErr := ToDomainError(cause)

	assert.Equal(t, "internal server error", domainErr.Message)
	// the cause stays attached for logging
	assert.ErrorIs(t, domainErr, cause)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("ticket", nil)))
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.False(t, IsNotFound(NewValidationError("bad", nil)))
	assert.False(t, IsNotFound(errors.New("other")))
}
