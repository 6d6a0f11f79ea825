// Package setup resolves the project configuration of buildgate: the project
// root, the build backend and logging options. Values come from an optional
// buildgate.yaml in the project root, BUILDGATE_* environment variables and
// command-line flags, in increasing order of precedence.
//
// This package is a collection of scripts and constants, and is therefore the
// only package that is allowed to call a global logger.
package setup
