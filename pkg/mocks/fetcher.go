package mocks

import (
	"context"

	"github.com/user/scrubview/pkg/ports"
)

// Fetcher is a mock implementation of ports.Fetcher. By default it
// delivers Data in one chunk at offset zero.
type Fetcher struct {
	FetchFunc func(ctx context.Context, src string, deliver func(chunk []byte, offset int64) error) error
	Data      []byte
}

func (m *Fetcher) Fetch(ctx context.Context, src string, deliver func(chunk []byte, offset int64) error) error {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, src, deliver)
	}
	if len(m.Data) > 0 {
		return deliver(m.Data, 0)
	}
	return nil
}

var _ ports.Fetcher = (*Fetcher)(nil)
