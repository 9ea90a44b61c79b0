// Package model defines the data structures shared across harmirror.
// It contains the per-run MirrorReport, per-entry FileResult, and the
// FileStatus outcome enumeration.
package model
