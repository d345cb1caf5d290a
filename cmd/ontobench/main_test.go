package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ontobench/ontobench/internal/orchestration"
	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	inner := errors.New("max_terms must not be negative")
	err := &ConfigError{Err: inner}

	assert.Equal(t, "max_terms must not be negative", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "success",
			err:  nil,
			want: ExitSuccess,
		},
		{
			name: "regular error",
			err:  errors.New("disk full"),
			want: ExitError,
		},
		{
			name: "config error",
			err:  &ConfigError{Err: ErrInvalidOutputDir},
			want: ExitConfigError,
		},
		{
			name: "wrapped config error",
			err:  fmt.Errorf("starting: %w", &ConfigError{Err: errors.New("bad")}),
			want: ExitConfigError,
		},
		{
			name: "population mismatch",
			err:  &DataError{Err: orchestration.ErrPopulationMismatch},
			want: ExitDataError,
		},
		{
			name: "joined data error",
			err:  errors.Join(errors.New("other"), &DataError{Err: errors.New("bad data")}),
			want: ExitDataError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
