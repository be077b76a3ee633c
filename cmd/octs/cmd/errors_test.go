package cmd

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/corey/octs/internal/adapters/treesitter"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"plain", errors.New("boom"), exitFailure},
		{"explicit", exitError{code: exitIO}, exitIO},
		{"wrapped explicit", fmt.Errorf("ctx: %w", exitError{code: exitFailure}), exitFailure},
		{"target io", &treesitter.TargetError{Path: "main.tf", Err: os.ErrNotExist}, exitIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsDBLockError(t *testing.T) {
	assert.False(t, isDBLockError(nil))
	assert.True(t, isDBLockError(fmt.Errorf("bbolt open: %w", berrors.ErrTimeout)))
	assert.False(t, isDBLockError(errors.New("permission denied")))
	// Unrelated failures that merely mention a timeout are not lock contention.
	assert.False(t, isDBLockError(errors.New("bbolt open: read /x/cache.db: i/o timeout")))
	assert.False(t, isDBLockError(fmt.Errorf("bbolt open: %w", os.ErrDeadlineExceeded)))
}
