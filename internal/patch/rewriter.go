package patch

import (
	"regexp"
	"strings"
)

// Rewriter rewrites asset references in an entry HTML document.
// The URL-level decisions live in Policy; implementations only differ in
// how they locate references inside the markup.
type Rewriter interface {
	// Rewrite returns the document with script, stylesheet, and framework
	// static-asset references pointed at their local copies and with
	// integrity/crossorigin attributes removed.
	Rewrite(doc string, policy *Policy) (string, error)

	// Name identifies the implementation in logs and reports.
	Name() string
}

// Patterns shared by both rewriter implementations.
//
// The tag patterns deliberately reproduce the reference behavior: only
// double-quoted attributes are matched, and <img src> is never touched.
var (
	// scriptSrcRe matches <script ... src="URL"> up to the attribute value.
	scriptSrcRe = regexp.MustCompile(`<script[^>]+src="([^"]+)"`)

	// linkHrefRe matches <link ... href="URL"> up to the attribute value.
	linkHrefRe = regexp.MustCompile(`<link[^>]+href="([^"]+)"`)

	// cssImportRe matches @import url(...) with an absolute http(s) URL.
	// Quotes are excluded from the URL group so a quoted import never
	// carries its closing quote into the rewritten path.
	cssImportRe = regexp.MustCompile(`@import\s+url\(["']?(https?://[^)"']+)["']?\)`)

	// nextStaticAbsRe matches absolute URLs of the common framework
	// static-asset path convention, anywhere in the document.
	nextStaticAbsRe = regexp.MustCompile(`https?://[^/]+/_next/static/`)

	// nextStaticProtoRe matches the protocol-relative form. It must run
	// after nextStaticAbsRe so the "//" inside absolute URLs is gone.
	nextStaticProtoRe = regexp.MustCompile(`//[^/]+/_next/static/`)

	// integrityAttrRe and crossoriginAttrRe match the subresource-integrity
	// attributes, including their leading whitespace. The recorded hashes
	// describe the remote files and no longer match locally patched copies.
	integrityAttrRe   = regexp.MustCompile(`\s+integrity="[^"]*"`)
	crossoriginAttrRe = regexp.MustCompile(`\s+crossorigin="[^"]*"`)
)

// RegexRewriter is the default, pattern-based rewriter. It operates on the
// document as text, which reproduces the reference tool's behavior exactly,
// including its known blind spots (single-quoted and multiline attributes).
// Use DOMRewriter when the capture's markup needs structural handling.
type RegexRewriter struct{}

// NewRegexRewriter creates the pattern-based rewriter.
func NewRegexRewriter() *RegexRewriter {
	return &RegexRewriter{}
}

// Name implements Rewriter.
func (r *RegexRewriter) Name() string { return "regex" }

// Rewrite implements Rewriter.
func (r *RegexRewriter) Rewrite(doc string, policy *Policy) (string, error) {
	// <script src> and <link href>, but never <img src>
	doc = rewriteTagURLs(doc, scriptSrcRe, policy)
	doc = rewriteTagURLs(doc, linkHrefRe, policy)

	doc = RewriteCSSImports(doc)
	doc = RewriteNextStatic(doc)

	doc = integrityAttrRe.ReplaceAllString(doc, "")
	doc = crossoriginAttrRe.ReplaceAllString(doc, "")

	return doc, nil
}

// rewriteTagURLs applies the policy to every URL captured by re's first
// group, replacing the URL inside the whole matched tag fragment.
func rewriteTagURLs(doc string, re *regexp.Regexp, policy *Policy) string {
	return re.ReplaceAllStringFunc(doc, func(tag string) string {
		groups := re.FindStringSubmatch(tag)
		if len(groups) < 2 {
			return tag
		}
		rawURL := groups[1]
		local, ok := policy.RewriteURL(rawURL)
		if !ok {
			return tag
		}
		return strings.ReplaceAll(tag, rawURL, local)
	})
}

// RewriteCSSImports rewrites @import url("http(s)://...") references in
// embedded CSS, keeping only the path portion after the host, "./"-prefixed.
// Exported because the DOM rewriter applies it to style text nodes.
func RewriteCSSImports(doc string) string {
	return cssImportRe.ReplaceAllStringFunc(doc, func(m string) string {
		groups := cssImportRe.FindStringSubmatch(m)
		if len(groups) < 2 {
			return m
		}
		// Keep everything after the third "/"-delimited segment:
		// "https://host/a/b" -> "a/b". A URL without a path keeps its
		// last segment, mirroring the reference behavior.
		parts := strings.SplitN(groups[1], "/", 4)
		return `@import url("./` + parts[len(parts)-1] + `")`
	})
}

// RewriteNextStatic rewrites absolute and protocol-relative references to
// the "/_next/static/" framework asset path to the local form, anywhere in
// the document text, regardless of tag context.
func RewriteNextStatic(doc string) string {
	doc = nextStaticAbsRe.ReplaceAllString(doc, "./_next/static/")
	doc = nextStaticProtoRe.ReplaceAllString(doc, "./_next/static/")
	return doc
}
