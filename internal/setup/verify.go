package setup

import (
	"os"

	"github.com/cockroachdb/errors"
)

// ErrNotInitialised marks a project without build settings.
var ErrNotInitialised = errors.New("project is not initialised")

// Verify checks that root is a directory containing the build settings file at
// settingsPath.
func Verify(root, settingsPath string) error {
	logger := getLogger().With("project", root)

	info, err := os.Stat(root)
	if err != nil {
		logger.Error("project root not accessible", "error", err)
		return errors.Wrapf(err, "project root %s", root)
	}
	if !info.IsDir() {
		return errors.Newf("project root %s is not a directory", root)
	}

	if _, err := os.Stat(settingsPath); err != nil {
		logger.Info("build settings not found", "path", settingsPath)
		return errors.WithHint(
			errors.Mark(errors.Wrapf(err, "build settings %s", settingsPath), ErrNotInitialised),
			"run 'buildgate init' to create the build settings",
		)
	}

	logger.Debug("project layout verified")
	return nil
}
