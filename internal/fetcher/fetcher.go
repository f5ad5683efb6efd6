// Package fetcher opens and decodes tabular sources: local or remote CSV and XLSX files.
package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Open returns a reader for source, downloading it through f when it is a URL and
// opening it from disk otherwise.
func Open(ctx context.Context, f Fetcher, source string) (io.ReadCloser, error) {
	if IsRemote(source) {
		if f == nil {
			return nil, eris.Errorf("fetcher: no downloader for %s", source)
		}
		return f.Download(ctx, source)
	}
	file, err := os.Open(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", source)
	}
	return file, nil
}
