package main

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/cochaviz/buildgate/internal/build"
	"github.com/cochaviz/buildgate/internal/validation"
)

func TestStatusExitCode(t *testing.T) {
	tests := map[build.Status]int{
		build.StatusSucceeded:         0,
		build.StatusInvalidConfig:     2,
		build.StatusAbortedByOperator: 3,
		build.StatusInvalidData:       4,
		build.StatusMissingSettings:   7,
		build.StatusMissingConfig:     7,
		build.StatusFailed:            11,
	}
	for status, want := range tests {
		assert.Equal(t, want, exitCode(statusError(status)), status)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 130, exitCode(errors.Wrap(context.Canceled, "run interrupted")))
	assert.Equal(t, 11, exitCode(errors.Wrap(statusError(build.StatusFailed), "build")))
}

func TestDataStatus(t *testing.T) {
	assert.NoError(t, dataStatus(validation.Summary{Checked: 2}))

	err := dataStatus(validation.Summary{Checked: 2, Failures: []validation.Failure{{Identity: "data/a.yaml"}}})
	assert.Equal(t, 1, exitCode(err))
	assert.True(t, isStatusError(err))
}
