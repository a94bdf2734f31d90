package enumerator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/sitepulse/internal/webclient"
)

// StatusError is returned for a page that answered with a non-2xx status.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Document is a fetched and parsed HTML page.
type Document struct {
	// URL is the page address after redirects.
	URL      *url.URL
	Response *webclient.Response
	Doc      *goquery.Document
}

// FetchDocument GETs target and parses the body as HTML. A non-2xx answer
// returns the response alongside a *StatusError so callers can still read the status.
func FetchDocument(ctx context.Context, wc webclient.WebClient, target string, timeout time.Duration) (*Document, error) {
	resp, err := wc.Do(ctx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     target,
		Headers: http.Header{"Accept": []string{"text/html,application/xhtml+xml"}},
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	final := resp.FinalURL
	if final == "" {
		final = target
	}
	u, err := url.Parse(final)
	if err != nil {
		return nil, fmt.Errorf("parse final url %q: %w", final, err)
	}
	if !resp.OK() {
		return &Document{URL: u, Response: resp}, &StatusError{URL: target, Status: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.BodyReader())
	if err != nil {
		return &Document{URL: u, Response: resp}, fmt.Errorf("parse html: %w", err)
	}
	return &Document{URL: u, Response: resp, Doc: doc}, nil
}
