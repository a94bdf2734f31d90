package webclient

import (
	"bytes"
	"io"

	"golang.org/x/net/html/charset"
)

// BodyReader returns the response body converted to UTF-8, using the
// Content-Type header and any <meta charset> to pick the encoding.
func (r *Response) BodyReader() io.Reader {
	raw := bytes.NewReader(r.Body)
	decoded, err := charset.NewReader(raw, r.Headers.Get("Content-Type"))
	if err != nil {
		return bytes.NewReader(r.Body)
	}
	return decoded
}
