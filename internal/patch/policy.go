package patch

import (
	"sort"
	"strings"
)

// Policy decides how a single asset URL is rewritten. It is shared by every
// Rewriter implementation so that swapping the markup-matching machinery
// never changes which URLs get rewritten or what they become.
type Policy struct {
	// hosts is the host set ordered longest-first, then lexicographic.
	//
	// Design decision: The host set is conceptually unordered, but when a
	// URL contains more than one known host as a substring (for example
	// "cdn.example.com" and "example.com") the result depends on which
	// matches first. Longest-first makes the tie-break deterministic and
	// always prefers the more specific host.
	hosts []string

	// imageExts are path suffixes whose URLs are never rewritten.
	imageExts []string
}

// NewPolicy creates a Policy for the given host set and image suffix list.
// Both slices are copied; the hosts copy is reordered longest-first.
func NewPolicy(hosts, imageExts []string) *Policy {
	p := &Policy{
		hosts:     append([]string(nil), hosts...),
		imageExts: append([]string(nil), imageExts...),
	}
	sort.Slice(p.hosts, func(i, j int) bool {
		if len(p.hosts[i]) != len(p.hosts[j]) {
			return len(p.hosts[i]) > len(p.hosts[j])
		}
		return p.hosts[i] < p.hosts[j]
	})
	return p
}

// Hosts returns the hosts in match order.
func (p *Policy) Hosts() []string {
	return append([]string(nil), p.hosts...)
}

// RewriteURL maps a reference to its local form.
//
// Image URLs are left untouched: image bodies were never extracted, so
// their references must keep pointing at the original location. For any
// other URL containing a known host, everything after the first occurrence
// of that host (leading slash stripped) becomes a "./"-prefixed relative
// path. URLs matching no host are returned unchanged.
func (p *Policy) RewriteURL(rawURL string) (string, bool) {
	if p.IsImageURL(rawURL) {
		return rawURL, false
	}
	for _, host := range p.hosts {
		idx := strings.Index(rawURL, host)
		if idx < 0 {
			continue
		}
		rest := strings.TrimLeft(rawURL[idx+len(host):], "/")
		return "./" + rest, true
	}
	return rawURL, false
}

// IsImageURL reports whether the URL ends in a recognized image extension.
func (p *Policy) IsImageURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, ext := range p.imageExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
