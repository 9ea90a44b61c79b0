// Package patch rewrites the entry HTML document of a reconstructed
// mirror: script and stylesheet references that point at captured hosts
// become local relative paths, framework static-asset URLs are localized,
// and subresource-integrity attributes are stripped. Image references are
// deliberately left pointing at their original hosts.
//
// The markup-matching machinery is isolated behind the Rewriter interface;
// the URL-level decisions (which hosts are rewritable, which suffixes are
// images, what the local form looks like) live in Policy and are shared by
// the pattern-based and structural implementations.
package patch
