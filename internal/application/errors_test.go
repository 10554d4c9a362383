package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/room-booking/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	assert.Equal(t, "", err.Error())

	empty := &ValidationError{}
	assert.Equal(t, "validation failed", empty.Error())

	withFields := &ValidationError{FieldErrors: map[string]string{"start": "bad", "end": "bad"}}
	assert.Equal(t, "validation failed: end, start", withFields.Error())
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	var nilErr *ValidationError
	assert.False(t, nilErr.HasErrors())
	assert.False(t, (&ValidationError{}).HasErrors())
	assert.True(t, (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors())
}

func TestValidationError_AddKeepsFirstMessage(t *testing.T) {
	t.Parallel()

	vErr := &ValidationError{}
	vErr.add("end_time", "end_time is required")
	vErr.add("end_time", "end_time must be after start_time")

	assert.Equal(t, "end_time is required", vErr.FieldErrors["end_time"])
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnauthorized, "unauthorized"},
		{fmt.Errorf("wrapped: %w", ErrNotFound), "not_found"},
		{ErrAlreadyExists, "already_exists"},
		{ErrInvalidCredentials, "invalid_credentials"},
		{&ValidationError{}, "validation"},
		{&scheduler.RuleViolation{Reason: scheduler.ReasonCapacityExceeded}, "capacity_exceeded"},
		{&scheduler.RuleViolation{Reason: scheduler.ReasonPastTime}, "past_time"},
		{context.Canceled, "canceled"},
		{errors.New("disk on fire"), "unexpected"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorKind(tc.err), "ErrorKind(%v)", tc.err)
	}
}
