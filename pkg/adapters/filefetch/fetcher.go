// Package filefetch streams local files through the Fetcher port so the
// decode pipeline sees the same chunked delivery as for remote sources.
package filefetch

import (
	"context"

	"github.com/user/scrubview/pkg/ports"
)

const chunkSize = 64 * 1024

// Fetcher implements ports.Fetcher for local paths.
type Fetcher struct {
	fs ports.FileSystem
}

// New creates a Fetcher backed by the given file system.
func New(fs ports.FileSystem) *Fetcher {
	return &Fetcher{fs: fs}
}

// Fetch reads the file and delivers it in fixed-size chunks, honoring
// context cancellation between chunks.
func (f *Fetcher) Fetch(ctx context.Context, src string, deliver func(chunk []byte, offset int64) error) error {
	data, err := f.fs.ReadFile(src)
	if err != nil {
		return err
	}

	for offset := 0; offset < len(data); offset += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := deliver(data[offset:end], int64(offset)); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.Fetcher = (*Fetcher)(nil)
