package ports

import (
	"context"
)

// Fetcher streams a binary resource. Each received byte range is
// delivered to the callback tagged with its absolute offset, in order,
// as it arrives. A non-nil callback error aborts the fetch.
type Fetcher interface {
	Fetch(ctx context.Context, src string, deliver func(chunk []byte, offset int64) error) error
}
