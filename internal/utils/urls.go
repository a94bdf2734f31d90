package utils

import (
	"errors"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyURL    = errors.New("empty url")
	ErrMissingHost = errors.New("missing host")
	ErrBadScheme   = errors.New("scheme must be http or https")
)

// skippedHrefPrefixes are anchor targets that never point at a page.
var skippedHrefPrefixes = []string{"#", "mailto:", "tel:", "javascript:"}

// nonPageExtensions are file types Discovery never treats as pages.
var nonPageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {}, ".ico": {},
	".pdf": {}, ".zip": {}, ".gz": {}, ".tar": {}, ".rar": {},
	".mp4": {}, ".mp3": {}, ".webm": {}, ".avi": {},
	".css": {}, ".js": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {}, ".otf": {},
}

// EnsureScheme prepends https:// when raw has no scheme.
//
// Examples:
//
//	"example.com"         → "https://example.com"
//	"http://example.com"  → "http://example.com"
//	"  example.com/a  "   → "https://example.com/a"
func EnsureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

// ParseTarget parses an absolute http(s) URL.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrBadScheme
	}
	if u.Host == "" {
		return nil, ErrMissingHost
	}
	return u, nil
}

// Origin returns scheme://host[:port] of u.
func Origin(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// SameOrigin reports whether a and b share scheme, host and port.
func SameOrigin(a, b *url.URL) bool {
	return Origin(a) == Origin(b)
}

// NormalizePageURL drops the fragment and userinfo, keeps the query, and
// renders an empty path as "/".
//
// Examples:
//
//	https://Example.com#top          → https://example.com/
//	https://example.com/a?b=1#frag   → https://example.com/a?b=1
func NormalizePageURL(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	out := Origin(u) + p
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

// ResolveHref resolves an anchor href against base. It reports false for
// fragment-only, mailto:, tel: and javascript: targets, unparsable values and
// non-http(s) results.
func ResolveHref(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, p := range skippedHrefPrefixes {
		if strings.HasPrefix(lower, p) {
			return "", false
		}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" || abs.Host == "" {
		return "", false
	}
	return NormalizePageURL(abs), true
}

// IsPageURL reports whether u's path does not end in a known asset extension.
func IsPageURL(u *url.URL) bool {
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return true
	}
	_, asset := nonPageExtensions[ext]
	return !asset
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
