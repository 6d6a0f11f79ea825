package models

import (
	"strings"

	"github.com/cochaviz/buildgate/internal/validation"
)

// BuildPathRoot is the directory every build path must live under.
const BuildPathRoot = "build/"

// Defaults applied to a freshly authored preset.
const (
	DefaultBuildTarget = StandaloneWindows64
	DefaultBuildPath   = "build/MyDemo.exe"
)

// Storefront identifies the store a build is distributed through.
type Storefront string

// Known storefronts.
const (
	StorefrontNone        Storefront = "none"
	StorefrontSteam       Storefront = "steam"
	StorefrontEpic        Storefront = "epic"
	StorefrontGOG         Storefront = "gog"
	StorefrontItch        Storefront = "itch"
	StorefrontMicrosoft   Storefront = "microsoft"
	StorefrontPlayStation Storefront = "playstation"
	StorefrontNintendo    Storefront = "nintendo"
)

// BuildConfig is a preset of build-related settings. ID, Storefront and
// CheatsEnabled are read at runtime; the remaining fields only matter while
// producing a build.
type BuildConfig struct {
	ID            string      `yaml:"id"`
	Storefront    Storefront  `yaml:"storefront"`
	CheatsEnabled bool        `yaml:"cheats_enabled"`
	Target        BuildTarget `yaml:"target"`
	BuildPath     string      `yaml:"build_path"`
	Development   bool        `yaml:"development"`
}

// NewBuildConfig returns a preset carrying the authoring defaults.
func NewBuildConfig(id string) BuildConfig {
	return BuildConfig{
		ID:         id,
		Storefront: StorefrontNone,
		Target:     DefaultBuildTarget,
		BuildPath:  DefaultBuildPath,
	}
}

var _ validation.Validatable = BuildConfig{}

// Validate checks every rule, build-time rules included.
func (c BuildConfig) Validate() validation.Outcome {
	return c.ValidateScope(validation.ScopeBuild)
}

// ValidateScope checks the rules that apply in scope. Every applicable rule is
// evaluated even after an earlier one failed.
func (c BuildConfig) ValidateScope(scope validation.Scope) validation.Outcome {
	var check validation.Checker

	check.Check(c.ID == "", "Missing ID")

	if scope == validation.ScopeBuild {
		check.Check(c.BuildPath == "", "Missing build path")
		if c.BuildPath != "" {
			check.Check(!strings.HasPrefix(c.BuildPath, BuildPathRoot), "Build path must start with 'build/'")
			check.Check(!c.Target.AcceptsFileName(fileName(c.BuildPath)), "Invalid file extension in build path")
		}
		check.Check(!c.Target.IsSelected(), "Invalid build target")
	}

	return check.Outcome()
}

// BuildSettings holds the project-wide reference to the current preset.
type BuildSettings struct {
	CurrentConfig string `yaml:"current_config"`
}

// RuntimeSettings is the subset of a preset a running instance reads.
type RuntimeSettings struct {
	ID            string
	Storefront    Storefront
	CheatsEnabled bool
}

// RuntimeView returns the runtime fields of the preset.
func (c BuildConfig) RuntimeView() RuntimeSettings {
	return RuntimeSettings{
		ID:            c.ID,
		Storefront:    c.Storefront,
		CheatsEnabled: c.CheatsEnabled,
	}
}

// Scene is one entry of the project's scene list.
type Scene struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// EnabledScenePaths returns the paths of enabled scenes in list order.
func EnabledScenePaths(scenes []Scene) []string {
	paths := []string{}
	for _, scene := range scenes {
		if scene.Enabled {
			paths = append(paths, scene.Path)
		}
	}
	return paths
}
