package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bulklist/bulklist/internal/cli"
	"github.com/bulklist/bulklist/pkg/version"
)

func TestMainComponents(t *testing.T) {
	t.Run("version available", func(t *testing.T) {
		assert.NotEmpty(t, version.GetVersion())
	})

	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(version.GetVersion())
		assert.NotNil(t, root)
		assert.Equal(t, "bulklist", root.Use)
	})
}

func TestExtractExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil error returns 0",
			err:  nil,
			want: 0,
		},
		{
			name: "ExitError carries its code",
			err:  &cli.ExitError{ExitCode: 1, Reason: "duplicate key"},
			want: 1,
		},
		{
			name: "wrapped ExitError is unwrapped",
			err:  errors.Join(errors.New("outer"), &cli.ExitError{ExitCode: 3, Reason: "wrapped"}),
			want: 3,
		},
		{
			name: "generic error falls through to 1",
			err:  errors.New("generic error"),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractExitCode(tt.err))
		})
	}
}
