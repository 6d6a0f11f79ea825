package setup

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// ConfigFileName is the optional project configuration file.
const ConfigFileName = "buildgate.yaml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BUILDGATE"

// Configuration keys.
const (
	KeyProject        = "project"
	KeyBackendKind    = "backend.kind"
	KeyBackendCommand = "backend.command"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
)

// Backend kinds.
const (
	BackendManifest = "manifest"
	BackendCommand  = "command"
)

// Config is the resolved project configuration.
type Config struct {
	Project string        `mapstructure:"project"`
	Backend BackendConfig `mapstructure:"backend"`
	Log     LogConfig     `mapstructure:"log"`
}

type BackendConfig struct {
	Kind    string `mapstructure:"kind"`
	Command string `mapstructure:"command"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProject, ".")
	v.SetDefault(KeyBackendKind, BackendManifest)
	v.SetDefault(KeyBackendCommand, "")
	v.SetDefault(KeyLogLevel, "warning")
	v.SetDefault(KeyLogFormat, "cli")
}

// NewViper returns a viper instance with defaults and environment binding.
// Flags are bound by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load merges buildgate.yaml from the configured project root, if present,
// and returns the resolved configuration.
func Load(v *viper.Viper) (Config, error) {
	project := v.GetString(KeyProject)
	path := filepath.Join(project, ConfigFileName)

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read %s", path)
		}
		getLogger().Debug("loaded project configuration", "path", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, errors.Wrapf(err, "stat %s", path)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrap(err, "decode project configuration")
	}
	// The project root is never taken from the file it locates.
	config.Project = project

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks the backend selection.
func (c Config) Validate() error {
	switch c.Backend.Kind {
	case BackendManifest:
		return nil
	case BackendCommand:
		if strings.TrimSpace(c.Backend.Command) == "" {
			return errors.WithHint(
				errors.New("backend.command is required for the command backend"),
				"set backend.command in "+ConfigFileName+" or "+EnvPrefix+"_BACKEND_COMMAND",
			)
		}
		return nil
	default:
		return errors.WithHint(
			errors.Newf("unknown backend %q", c.Backend.Kind),
			"use "+BackendManifest+" or "+BackendCommand,
		)
	}
}
