// Package configs provides embedded templates for the files trove
// generates.
//
// Templates are embedded at build time with go:embed, so they are available
// in every distribution: source builds, binary releases, and package
// installs alike. `trove init` writes them into the project root.
//
// Configuration hierarchy (see internal/config Load()):
//  1. Hardcoded defaults (internal/config NewConfig())
//  2. User config (~/.config/trove/config.yaml)
//  3. Project config (.trove.yaml)
//  4. Environment variables (TROVE_*)
//
// To modify a template, edit the file in this directory and rebuild.
package configs

import _ "embed"

// ProjectConfigTemplate is the starter .trove.yaml written by `trove init`
// into the project root. Every key is optional; missing keys fall back to
// built-in defaults.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// IgnoreTemplate is the starter .troveignore written by `trove init`.
//
//go:embed troveignore.example
var IgnoreTemplate string
