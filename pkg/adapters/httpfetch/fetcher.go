// Package httpfetch streams remote resources over HTTP, delivering
// offset-tagged byte ranges as they arrive.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/user/scrubview/pkg/ports"
)

const chunkSize = 64 * 1024

// Fetcher implements ports.Fetcher over HTTP(S).
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher. A nil client uses http.DefaultClient.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// Fetch streams the resource body in order. Bytes are never buffered
// whole before delivery starts.
func (f *Fetcher) Fetch(ctx context.Context, src string, deliver func(chunk []byte, offset int64) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", src, resp.Status)
	}

	buf := make([]byte, chunkSize)
	var offset int64
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if derr := deliver(chunk, offset); derr != nil {
				return derr
			}
			offset += int64(n)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
	}
}

var _ ports.Fetcher = (*Fetcher)(nil)
