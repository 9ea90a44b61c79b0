// Package database provides SQLite-based persistence for mirror runs.
// Each run stores its full report as JSON plus per-file records with
// content hashes, enabling run history queries and change detection
// between repeated mirrors of the same capture.
package database
