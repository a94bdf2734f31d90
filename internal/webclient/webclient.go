package webclient

import "context"

// WebClient fetches URLs. Implementations must be safe for concurrent use.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}
