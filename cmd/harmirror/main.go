// Package main provides the entry point for the harmirror CLI.
//
// harmirror reconstructs a static mirror of a captured web session from an
// HTTP Archive (HAR) file: it writes each recorded response body to a path
// derived from its URL, then rewrites script and stylesheet references in
// the site's entry HTML document to point at the local copies.
//
// Usage:
//
//	harmirror mirror site.har
//	harmirror mirror site.har /path/to/site-root
//
// See --help for all available options.
package main

// main is the entry point for harmirror.
func main() {
	Execute()
}
