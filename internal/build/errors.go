package build

import "github.com/cockroachdb/errors"

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("a build run is already in progress")

// ErrNotConfigured is returned when a required collaborator is missing.
var ErrNotConfigured = errors.New("orchestrator is not configured")
