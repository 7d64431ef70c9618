package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddkit/domain/shared"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"cancelled", fmt.Errorf("load: %w", context.Canceled), CodeCancelled},
		{"deadline", context.DeadlineExceeded, CodeCancelled},
		{"rule", fmt.Errorf("place: %w", shared.ErrRuleViolation), CodeRuleViolation},
		{"concurrency", shared.NewConcurrencyConflictError("Order", "42", nil), CodeConcurrencyConflict},
		{"conflict", shared.NewConflictError("Customer", "email taken"), CodeConflict},
		{"entity not found", shared.NewEntityNotFoundError("Order", "42"), CodeNotFound},
		{"enumeration", shared.ErrEnumerationNotFound, CodeNotFound},
		{"validation", shared.NewValidationError("Order", "status", "unknown"), CodeInvalidInput},
		{"paging", shared.ErrInvalidPaging, CodeInvalidInput},
		{"unknown", errors.New("disk on fire"), CodeInternal},
		{"explicit", Wrap(shared.ErrNotFound, CodePublishFailure, "relay"), CodePublishFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestAsAppError(t *testing.T) {
	assert.Nil(t, AsAppError(nil))

	tagged := StorageFailure(errors.New("connection reset"), "commit failed")
	got := AsAppError(fmt.Errorf("outer: %w", tagged))
	require.NotNil(t, got)
	assert.Same(t, tagged, got)

	got = AsAppError(shared.NewEntityNotFoundError("Customer", 7))
	require.NotNil(t, got)
	assert.Equal(t, CodeNotFound, got.Code)
	assert.ErrorIs(t, got, shared.ErrNotFound)
	assert.True(t, Is(got, CodeNotFound))
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "INVALID_INPUT: bad id", New(CodeInvalidInput, "bad id").Error())
	assert.Equal(t, "STORAGE_FAILURE: commit failed (connection reset)",
		StorageFailure(errors.New("connection reset"), "commit failed").Error())
}
