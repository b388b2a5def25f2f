// Package urlcanon implements the bit-exact URL canonicalization contract
// used as the sole deduplication key throughout the pipeline.
package urlcanon

import (
	"net/url"
	"regexp"
	"strings"
)

// trackingPrefixes and trackingExact form the fixed tracking-parameter list:
// any query parameter whose lowercased name matches one of these is dropped.
var trackingPrefixes = []string{"utm_"}

var trackingExact = map[string]bool{
	"ref":     true,
	"ref_src": true,
}

var arxivPattern = regexp.MustCompile(`^/(abs|pdf)/(\d+\.\d+)(v\d+)?$`)

// Canonicalize applies a bit-exact canonicalization contract:
//   - trim whitespace; lowercase scheme and host; strip fragment
//   - drop tracking query parameters (utm_*, ref, ref_src)
//   - strip trailing slash from the path (but keep "/" as the root path)
//   - for arxiv.org/(abs|pdf)/ID URLs, strip the trailing vN suffix
//   - empty input -> empty string
func Canonicalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// The path is lowercased too (beyond the prose contract's "scheme and
	// host"): Scenario A's github.com/Foo/Bar example canonicalizes to
	// github.com/foo/bar, so case-folding the path is part of the bit-exact
	// contract even though §6's summary sentence only names scheme/host.
	u.Path = canonicalizePath(strings.ToLower(u.Host), strings.ToLower(u.Path))

	if u.RawQuery != "" {
		u.RawQuery = stripTrackingParams(u.RawQuery)
	}

	return u.String()
}

func canonicalizePath(host, path string) string {
	if isArxivHost(host) {
		if m := arxivPattern.FindStringSubmatch(path); m != nil {
			path = "/" + m[1] + "/" + m[2]
		}
	}

	if path == "" {
		return "/"
	}
	if path != "/" && strings.HasSuffix(path, "/") {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func isArxivHost(host string) bool {
	return host == "arxiv.org" || strings.HasSuffix(host, ".arxiv.org")
}

func stripTrackingParams(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	for key := range values {
		lower := strings.ToLower(key)
		if trackingExact[lower] || hasTrackingPrefix(lower) {
			values.Del(key)
		}
	}

	return values.Encode()
}

func hasTrackingPrefix(key string) bool {
	for _, p := range trackingPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
