package utils

import (
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// CanonicalSiteURL returns the stable form of a user-supplied site URL, used
// as the identity of a site in storage. Scheme-less input is treated as https.
//
// Examples:
//
//	"Example.COM"                   → "https://example.com"
//	"HTTP://example.com:80/blog/"   → "http://example.com/blog"
//	"https://例え.テスト/a#x"         → "https://xn--r8jz45g.xn--zckzah/a"
//	"https://a.test/?b=2&a=1"       → "https://a.test?a=1&b=2"
func CanonicalSiteURL(raw string) (string, error) {
	u, err := ParseTarget(EnsureScheme(raw))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}
	port := u.Port()
	switch {
	case port == "", u.Scheme == "http" && port == "80", u.Scheme == "https" && port == "443":
		u.Host = host
	default:
		u.Host = net.JoinHostPort(host, port)
	}
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""

	p := path.Clean("/" + u.Path)
	if p == "/" {
		p = ""
	}
	u.Path = p
	u.RawPath = ""

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		vs := append([]string(nil), q[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			ordered.Add(k, v)
		}
	}
	u.RawQuery = ordered.Encode()

	return u.String(), nil
}
