package binary

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/release"
)

const (
	// maxRedirects is the redirect budget for artifact downloads. Release
	// assets are served through one or two CDN hops.
	maxRedirects = 10
	// maxSidecarSize caps signature downloads.
	maxSidecarSize = 1 << 20
)

// Downloader performs single-attempt HTTP transfers. It never retries: a
// failed artifact download is reported to the caller as-is.
type Downloader struct {
	client    *http.Client
	userAgent string
}

// NewDownloader creates a downloader with no overall transfer timeout.
// Cancellation is driven by the request context.
func NewDownloader() *Downloader {
	return &Downloader{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: release.DefaultUserAgent,
	}
}

// Open starts a GET for url and returns the body along with the advertised
// content length (-1 when unknown). The caller must close the body.
func (d *Downloader) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, &release.HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	return resp.Body, resp.ContentLength, nil
}

// Fetch downloads a small file fully into memory.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, _, err := d.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxSidecarSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(data) > maxSidecarSize {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, maxSidecarSize)
	}
	return data, nil
}
