package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Downloader fetches the source audio into a working directory.
type Downloader struct {
	HTTP            *http.Client
	MaxRetryElapsed time.Duration
}

// NewDownloader bounds a whole download, body included, by timeout. Zero
// leaves the limit to the caller's context.
func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{HTTP: &http.Client{Timeout: timeout}, MaxRetryElapsed: 30 * time.Second}
}

// Download stores src under dir/fileName. src may be an http(s) URL or a
// local path; local paths are used in place. A retry after a broken body
// resumes with a Range request when the server supports it.
func (d *Downloader) Download(ctx context.Context, src, dir, fileName string) (string, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		if _, err := os.Stat(src); err != nil {
			return "", fmt.Errorf("source audio: %w", err)
		}
		return src, nil
	}
	dst := filepath.Join(dir, fileName)
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var written int64
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = d.MaxRetryElapsed
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if written > 0 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", written))
		}
		resp, err := d.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("download %s: status %d", src, resp.StatusCode)
		case resp.StatusCode >= 300:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("download %s: status %d: %s", src, resp.StatusCode, string(b)))
		case resp.StatusCode != http.StatusPartialContent && written > 0:
			// no range support: start over
			if err := f.Truncate(0); err != nil {
				return backoff.Permanent(err)
			}
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return backoff.Permanent(err)
			}
			written = 0
		}
		n, err := io.Copy(f, resp.Body)
		written += n
		if err != nil {
			return fmt.Errorf("download %s: %w", src, err)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return dst, nil
}
