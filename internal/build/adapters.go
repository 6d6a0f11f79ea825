package build

import (
	"context"

	"github.com/cochaviz/buildgate/internal/models"
	"github.com/cochaviz/buildgate/internal/validation"
)

// EntityStore resolves the project's settings, presets and content.
type EntityStore interface {
	Root() string
	LoadSettings() (models.BuildSettings, error)
	LoadConfig(ref string) (models.BuildConfig, error)
	Scenes() ([]models.Scene, error)
	EnumerateContentEntities() ([]validation.Entry, error)
}

// Backend produces the build artifact. Invoke blocks until the build finished.
type Backend interface {
	Invoke(ctx context.Context, params Parameters) (BackendResult, error)
}

// Prompt asks the operator to confirm or decline.
type Prompt interface {
	Ask(ctx context.Context, question Question) (bool, error)
}

// Diagnostics receives operator-facing messages in the order they are produced.
type Diagnostics interface {
	ReportError(message string)
	ReportInfo(message string)
}
