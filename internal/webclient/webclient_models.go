package webclient

import (
	"net/http"
	"time"
)

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte

	// Timeout bounds this request only; zero uses the client default.
	Timeout time.Duration

	// DiscardBody skips reading the response body.
	DiscardBody bool
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time

	// FinalURL is the URL that produced the response after redirects.
	FinalURL string
	// Redirected is true when at least one redirect was followed.
	Redirected bool
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
