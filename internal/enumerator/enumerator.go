package enumerator

import "context"

// Enumerator lists the pages of a site.
type Enumerator interface {
	Enumerate(ctx context.Context, target string) ([]string, error)
}
