// Package pipeline orchestrates the mirror workflow as an ordered sequence
// of steps: extract the archive into a staging directory, copy the staged
// tree into the site root, and patch the entry document. A BatchProcessor
// runs multiple independent archives with an optional concurrency limit;
// each archive's own pipeline is always sequential.
package pipeline
