package enumerator

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/sitepulse/internal/utils"
)

// LinkSet is the deduplicated anchor targets of a page, in document order.
type LinkSet struct {
	All      []string
	Internal []string
	External []string
}

// ExtractLinks resolves every <a href> against the page URL (or its <base href>)
// and splits the results by origin. Skipped and unparsable hrefs are dropped.
func ExtractLinks(doc *goquery.Document, pageURL *url.URL) LinkSet {
	base := pageURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := url.Parse(href); err == nil {
			base = pageURL.ResolveReference(b)
		}
	}

	set := LinkSet{All: []string{}, Internal: []string{}, External: []string{}}
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, ok := utils.ResolveHref(base, href)
		if !ok {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		set.All = append(set.All, abs)

		u, err := url.Parse(abs)
		if err == nil && utils.SameOrigin(u, pageURL) {
			set.Internal = append(set.Internal, abs)
		} else {
			set.External = append(set.External, abs)
		}
	})
	return set
}

// InternalPages filters the internal links down to page-like URLs.
func (ls LinkSet) InternalPages() []string {
	out := make([]string, 0, len(ls.Internal))
	for _, l := range ls.Internal {
		u, err := url.Parse(l)
		if err != nil || !utils.IsPageURL(u) {
			continue
		}
		out = append(out, l)
	}
	return out
}
