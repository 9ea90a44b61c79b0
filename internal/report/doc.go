// Package report generates mirror run output in multiple formats:
// human-readable text, JSON for tool integration, and Markdown for
// documentation and sharing.
package report
