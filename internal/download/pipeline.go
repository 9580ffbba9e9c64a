// Package download implements the concurrent, retrying, integrity-checked
// image acquisition pipeline.
package download

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	// Decoders registered for integrity verification.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/pool"
)

// Fetcher is the transport the pipeline downloads through; the site
// session satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers http.Header) ([]byte, error)
}

// Config controls retry behavior.
type Config struct {
	// MaxRetries bounds additional attempts after the first failure.
	MaxRetries int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
}

// Downloader writes a chapter's ordered image list into a directory.
type Downloader struct {
	runner *pool.Runner
	cfg    Config
	logger *zap.Logger

	// diskMu serializes the check-then-fetch-then-write sequence so two
	// workers never download the identical target concurrently.
	diskMu sync.Mutex
}

// New constructs a Downloader sharing the process worker pool.
func New(runner *pool.Runner, cfg Config, logger *zap.Logger) *Downloader {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{runner: runner, cfg: cfg, logger: logger}
}

// Report summarizes one batch.
type Report struct {
	Written int
	Skipped int
	Failed  []string
}

// Complete reports whether every image landed on disk.
func (r Report) Complete() bool { return len(r.Failed) == 0 }

type outcome struct {
	url     string
	skipped bool
	err     error
}

// Download fetches every image into dir, named by reading-order index.
// Images already present with non-zero size are skipped, so reruns are
// idempotent. A single image's terminal failure is warned and recorded,
// never raised; the batch blocks until every image settles.
func (d *Downloader) Download(ctx context.Context, fetcher Fetcher, urls []string, dir string) (Report, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create chapter dir: %w", err)
	}

	tasks := make([]pool.Task[outcome], 0, len(urls))
	for i, u := range urls {
		index, url := i, u
		tasks = append(tasks, func(ctx context.Context) ([]outcome, error) {
			target := filepath.Join(dir, imageFileName(index, url))
			skipped, err := d.fetchOne(ctx, fetcher, url, target)
			// Failures ride the result slice: the batch report needs
			// them, so they must not be dropped by the runner.
			return []outcome{{url: url, skipped: skipped, err: err}}, nil
		})
	}

	var report Report
	for _, res := range pool.Collect(ctx, d.runner, tasks) {
		switch {
		case res.err != nil:
			d.logger.Warn("image download failed",
				zap.String("url", res.url), zap.Error(res.err))
			report.Failed = append(report.Failed, res.url)
		case res.skipped:
			report.Skipped++
		default:
			report.Written++
		}
	}
	return report, nil
}

// fetchOne downloads one image with bounded retries, verifying the bytes
// decode as an image before the file is committed.
func (d *Downloader) fetchOne(ctx context.Context, fetcher Fetcher, url, target string) (bool, error) {
	d.diskMu.Lock()
	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		d.diskMu.Unlock()
		return true, nil
	}
	d.diskMu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, &comic.ImageDownloadError{URL: url, Err: ctx.Err()}
			case <-time.After(d.cfg.RetryDelay):
			}
		}
		body, err := fetcher.Fetch(ctx, url, nil)
		if err != nil {
			lastErr = err
			continue
		}
		if _, _, err := image.Decode(bytes.NewReader(body)); err != nil {
			lastErr = fmt.Errorf("verify image: %w", err)
			continue
		}

		d.diskMu.Lock()
		err = writeAtomic(target, body)
		d.diskMu.Unlock()
		if err != nil {
			return false, &comic.ImageDownloadError{URL: url, Err: err}
		}
		return false, nil
	}
	return false, &comic.ImageDownloadError{URL: url, Err: lastErr}
}

// writeAtomic stages to a temp file and renames, so readers never see a
// truncated image.
func writeAtomic(target string, data []byte) error {
	tmp := target + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("commit file: %w", err)
	}
	return nil
}

// imageFileName builds a zero-padded, order-preserving name, keeping the
// source extension when it looks like one.
func imageFileName(index int, url string) string {
	ext := strings.ToLower(filepath.Ext(url))
	if i := strings.IndexAny(ext, "?&"); i >= 0 {
		ext = ext[:i]
	}
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		ext = ".jpg"
	}
	return fmt.Sprintf("%04d%s", index+1, ext)
}
