package download

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/pool"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeFetcher struct {
	mu       sync.Mutex
	bodies   map[string][]byte
	failures map[string]int // URL -> failures before success; -1 fails forever
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies:   make(map[string][]byte),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ http.Header) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if n, ok := f.failures[url]; ok {
		if n < 0 || f.calls[url] <= n {
			return nil, errors.New("connection reset")
		}
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("404")
	}
	return body, nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func newTestDownloader(retries int) *Downloader {
	return New(pool.New(4, zap.NewNop()), Config{
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	}, zap.NewNop())
}

func TestDownload_WritesAllImagesInOrder(t *testing.T) {
	t.Parallel()

	img := pngBytes(t)
	fetcher := newFakeFetcher()
	urls := []string{"http://img/a.png", "http://img/b.png", "http://img/c.png"}
	for _, u := range urls {
		fetcher.bodies[u] = img
	}

	dir := t.TempDir()
	report, err := newTestDownloader(0).Download(context.Background(), fetcher, urls, dir)
	require.NoError(t, err)
	require.Equal(t, 3, report.Written)
	require.True(t, report.Complete())

	for _, name := range []string{"0001.png", "0002.png", "0003.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		require.Positive(t, info.Size())
	}
}

func TestDownload_OneBadImageDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	img := pngBytes(t)
	fetcher := newFakeFetcher()
	urls := []string{
		"http://img/1.png", "http://img/2.png", "http://img/3.png",
		"http://img/4.png", "http://img/5.png",
	}
	for _, u := range urls {
		fetcher.bodies[u] = img
	}
	fetcher.failures["http://img/3.png"] = -1

	dir := t.TempDir()
	report, err := newTestDownloader(1).Download(context.Background(), fetcher, urls, dir)
	require.NoError(t, err)
	require.Equal(t, 4, report.Written)
	require.Equal(t, []string{"http://img/3.png"}, report.Failed)
	require.False(t, report.Complete())
}

func TestDownload_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.bodies["http://img/a.png"] = pngBytes(t)
	fetcher.failures["http://img/a.png"] = 2

	report, err := newTestDownloader(2).Download(
		context.Background(), fetcher, []string{"http://img/a.png"}, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 1, report.Written)
	require.Equal(t, 3, fetcher.callCount("http://img/a.png"))
}

func TestDownload_CorruptBytesFailVerification(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.bodies["http://img/a.png"] = []byte("<html>interstitial</html>")

	dir := t.TempDir()
	report, err := newTestDownloader(0).Download(
		context.Background(), fetcher, []string{"http://img/a.png"}, dir)
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)

	// Nothing half-written left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDownload_RerunSkipsExistingFiles(t *testing.T) {
	t.Parallel()

	img := pngBytes(t)
	fetcher := newFakeFetcher()
	urls := []string{"http://img/a.png", "http://img/b.png"}
	for _, u := range urls {
		fetcher.bodies[u] = img
	}

	dir := t.TempDir()
	d := newTestDownloader(0)

	first, err := d.Download(context.Background(), fetcher, urls, dir)
	require.NoError(t, err)
	require.Equal(t, 2, first.Written)

	second, err := d.Download(context.Background(), fetcher, urls, dir)
	require.NoError(t, err)
	require.Equal(t, 0, second.Written)
	require.Equal(t, 2, second.Skipped)

	// Zero redundant network requests on rerun.
	require.Equal(t, 1, fetcher.callCount("http://img/a.png"))
	require.Equal(t, 1, fetcher.callCount("http://img/b.png"))
}

func TestImageFileName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0001.jpg", imageFileName(0, "http://x/a.jpg"))
	require.Equal(t, "0010.png", imageFileName(9, "http://x/b.png"))
	require.Equal(t, "0002.jpg", imageFileName(1, "http://x/c.jpg?sig=abc"))
	require.Equal(t, "0003.jpg", imageFileName(2, "http://x/no-extension"))
}
