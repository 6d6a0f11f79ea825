package main

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/cochaviz/buildgate/internal/build"
	"github.com/cochaviz/buildgate/internal/validation"
)

// Process exit codes.
const (
	exitOK              = 0
	exitError           = 1
	exitInvalidConfig   = 2
	exitAborted         = 3
	exitInvalidData     = 4
	exitMissingSettings = 7
	exitBuildFailed     = 11
	exitInterrupted     = 130
)

// statusErr ends a command with the exit code of a run status.
type statusErr struct {
	status string
	code   int
}

func (e *statusErr) Error() string {
	return e.status
}

func statusExitCode(status build.Status) int {
	switch status {
	case build.StatusSucceeded:
		return exitOK
	case build.StatusInvalidConfig:
		return exitInvalidConfig
	case build.StatusAbortedByOperator:
		return exitAborted
	case build.StatusInvalidData:
		return exitInvalidData
	case build.StatusMissingSettings, build.StatusMissingConfig:
		return exitMissingSettings
	case build.StatusFailed:
		return exitBuildFailed
	default:
		return exitError
	}
}

// statusError returns nil for a successful run.
func statusError(status build.Status) error {
	code := statusExitCode(status)
	if code == exitOK {
		return nil
	}
	return &statusErr{status: string(status), code: code}
}

func dataStatus(summary validation.Summary) error {
	if summary.Passed() {
		return nil
	}
	return &statusErr{status: string(build.StatusInvalidData), code: exitError}
}

func isStatusError(err error) bool {
	var target *statusErr
	return errors.As(err, &target)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var status *statusErr
	if errors.As(err, &status) {
		return status.code
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	return exitError
}
