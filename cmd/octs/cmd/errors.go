package cmd

import (
	"errors"

	berrors "go.etcd.io/bbolt/errors"

	"github.com/corey/octs/internal/adapters/treesitter"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitIO      = 2
)

// exitError carries a specific exit code. An empty message means the command
// already reported the problem.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }

// ExitCode maps an error returned by Execute to a process exit code.
// Unreadable targets exit with 2, everything else with 1.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, treesitter.ErrTargetIO) {
		return exitIO
	}
	return exitFailure
}

// isDBLockError reports whether bbolt gave up waiting for the file lock held
// by another process.
func isDBLockError(err error) bool {
	return errors.Is(err, berrors.ErrTimeout)
}
