package models

import (
	"slices"
	"strings"
)

// BuildTarget identifies the platform a build is produced for.
type BuildTarget string

// Supported build targets.
const (
	NoTarget            BuildTarget = "none"
	StandaloneWindows   BuildTarget = "StandaloneWindows"
	StandaloneWindows64 BuildTarget = "StandaloneWindows64"
	StandaloneOSX       BuildTarget = "StandaloneOSX"
	StandaloneLinux64   BuildTarget = "StandaloneLinux64"
	Android             BuildTarget = "Android"
	IOS                 BuildTarget = "iOS"
	WebGL               BuildTarget = "WebGL"
)

// targetExtensions lists the file extensions a target's output name must end
// with. Targets missing from the map accept any name.
var targetExtensions = map[BuildTarget][]string{
	StandaloneWindows:   {".exe"},
	StandaloneWindows64: {".exe"},
	StandaloneOSX:       {".app"},
	Android:             {".apk", ".aab"},
}

// IsSelected reports whether t is one of the known targets. The sentinel and
// unrecognised classifiers are not selected.
func (t BuildTarget) IsSelected() bool {
	return slices.Contains(KnownTargets(), t)
}

// RequiredExtensions returns the extensions accepted for the target's output
// file, or nil when the target does not constrain it.
func (t BuildTarget) RequiredExtensions() []string {
	return targetExtensions[t]
}

// AcceptsFileName reports whether name (the last element of a build path) has
// an extension allowed for the target.
func (t BuildTarget) AcceptsFileName(name string) bool {
	extensions := t.RequiredExtensions()
	if len(extensions) == 0 {
		return true
	}
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// KnownTargets returns every target with a defined classifier, sentinel excluded.
func KnownTargets() []BuildTarget {
	return []BuildTarget{
		StandaloneWindows,
		StandaloneWindows64,
		StandaloneOSX,
		StandaloneLinux64,
		Android,
		IOS,
		WebGL,
	}
}

// fileName returns what follows the last slash or backslash in p. A path with
// a trailing separator has an empty file name.
func fileName(p string) string {
	return p[strings.LastIndexAny(p, "/\\")+1:]
}
