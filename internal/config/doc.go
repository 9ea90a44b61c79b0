// Package config provides configuration structures and utilities for
// harmirror. It defines the options for archive extraction, entry-document
// patching, and report generation preferences.
package config
