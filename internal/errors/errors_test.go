package errors

import (
	stderrors "errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "resource not found", NewExitError(ErrNotFound, ExitUser).Error())
	assert.Equal(t, "exit code 2", NewExitError(nil, ExitSystem).Error())

	err := NewUserError(Wrapf(ErrNotFound, "skill %q", "fastapi"), "Run: skillkit skill list")
	assert.Equal(t, `skill "fastapi": resource not found`, err.Error())
	assert.Equal(t, "Run: skillkit skill list", err.Suggestion)
}

func TestExitError_Chain(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"direct sentinel", NewExitError(ErrNotFound, ExitUser), ErrNotFound, true},
		{"through cockroach wrap", NewUserError(Wrap(ErrMissingName, "parsing SKILL.md"), ""), ErrMissingName, true},
		{"through stdlib wrap", NewSystemError(Wrap(fs.ErrPermission, "writing backup"), ""), fs.ErrPermission, true},
		{"different sentinel", NewExitError(ErrNotFound, ExitUser), ErrInvalidConfig, false},
		{"nil cause", NewExitError(nil, ExitUser), ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.err, tt.target))
		})
	}
}

func TestExitError_As(t *testing.T) {
	err := Wrapf(NewConfigError(Wrap(ErrInvalidConfig, "max_lines must be positive")), "loading %s", "config.yaml")

	var exitErr *ExitError
	require.True(t, As(err, &exitErr))
	assert.Equal(t, ExitUser, exitErr.Code)
	assert.Equal(t, "Run: skillkit doctor", exitErr.Suggestion)
	assert.True(t, stderrors.Is(err, ErrInvalidConfig), "stdlib errors.Is sees the sentinel")
	assert.Equal(t, "loading config.yaml: max_lines must be positive: invalid configuration", err.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"user error", NewUserError(ErrNotFound, "check the name"), ExitUser},
		{"wrapped system error", Wrap(NewSystemError(New("disk full"), ""), "writing Dockerfile"), ExitSystem},
		{"lint failure", Wrap(ErrValidationFailed, "2 skill(s) failed"), ExitUser},
		{"doctor error keeps code", NewExitError(Wrap(ErrValidationFailed, "1 check failed"), ExitSystem), ExitSystem},
		{"explicit code", NewExitErrorWithSuggestion(New("interrupted"), 130, ""), 130},
		{"unclassified", New("boom"), ExitSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestCombineErrors(t *testing.T) {
	assert.Nil(t, CombineErrors(nil, nil))

	err := CombineErrors(Wrap(ErrNotFound, "Dockerfile"), New("second"))
	assert.True(t, Is(err, ErrNotFound))
	assert.Equal(t, "Dockerfile: resource not found", err.Error())
}
