// Package manifest provides a build backend that records the resolved build
// parameters instead of producing a player. It is the default backend for
// projects that have not configured a build tool yet.
package manifest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/cochaviz/buildgate/internal/build"
	"github.com/cochaviz/buildgate/internal/logging"
)

var _ build.Backend = (*Backend)(nil)

// Suffix is appended to the output path to name the manifest file.
const Suffix = ".manifest.yaml"

// Document is the content of a written manifest.
type Document struct {
	Parameters build.Parameters `yaml:"parameters"`
	WrittenAt  time.Time        `yaml:"written_at"`
}

// Backend writes a manifest next to the requested output path, and a marker
// file at the output path itself so the run has an artifact to describe.
type Backend struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// Path returns the manifest location for an output path.
func Path(outputPath string) string {
	return outputPath + Suffix
}

func (b *Backend) Invoke(ctx context.Context, params build.Parameters) (build.BackendResult, error) {
	if err := ctx.Err(); err != nil {
		return build.BackendFailed, err
	}
	if params.OutputPath == "" {
		return build.BackendFailed, errors.New("output path is required")
	}

	logger := logging.Ensure(b.Logger).With("backend", "manifest", "run_id", params.RunID)

	if err := os.MkdirAll(filepath.Dir(params.OutputPath), 0o755); err != nil {
		return build.BackendFailed, errors.Wrap(err, "create output directory")
	}

	doc := Document{Parameters: params, WrittenAt: b.now().UTC()}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return build.BackendFailed, errors.Wrap(err, "encode manifest")
	}

	path := Path(params.OutputPath)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return build.BackendFailed, errors.Wrapf(err, "write manifest %s", path)
	}
	if err := os.WriteFile(params.OutputPath, nil, 0o644); err != nil {
		return build.BackendFailed, errors.Wrapf(err, "write output marker %s", params.OutputPath)
	}

	logger.Info("wrote build manifest", "path", path)
	return build.BackendSucceeded, nil
}

func (b *Backend) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Read loads a manifest written by Backend.
func Read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, errors.Wrapf(err, "read manifest %s", path)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, errors.Wrapf(err, "decode manifest %s", path)
	}
	return doc, nil
}
