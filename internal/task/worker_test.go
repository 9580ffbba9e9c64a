package task

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/comicbook"
	"github.com/comicdl/comicdl/internal/session"
	"github.com/comicdl/comicdl/internal/sites"
)

var (
	workerFakeMu    sync.Mutex
	workerFakes     = make(map[string]comic.Crawler)
	workerFakeSites = make(map[string]bool)
)

func installWorkerFake(t *testing.T, site string, c comic.Crawler) {
	t.Helper()
	workerFakeMu.Lock()
	defer workerFakeMu.Unlock()
	if !workerFakeSites[site] {
		sites.Register(site, func(string, sites.Deps) comic.Crawler {
			workerFakeMu.Lock()
			defer workerFakeMu.Unlock()
			return workerFakes[site]
		})
		workerFakeSites[site] = true
	}
	workerFakes[site] = c
}

type workerCrawler struct {
	item     comic.ComicBookItem
	chapters map[int]comic.ChapterItem
	err      error
}

func (f *workerCrawler) ComicBookItem(context.Context) (comic.ComicBookItem, error) {
	return f.item, f.err
}

func (f *workerCrawler) ChapterItem(_ context.Context, citem comic.Citem) (comic.ChapterItem, error) {
	item, ok := f.chapters[citem.Number]
	if !ok {
		return comic.ChapterItem{}, comic.ErrChapterNotFound
	}
	return item, nil
}

func (f *workerCrawler) Search(context.Context, string, int, int) (comic.SearchResultItem, error) {
	return comic.SearchResultItem{}, nil
}

func (f *workerCrawler) Latest(context.Context, int) (comic.SearchResultItem, error) {
	return comic.SearchResultItem{}, nil
}

func (f *workerCrawler) Tags(context.Context) (comic.TagsItem, error) {
	return comic.TagsItem{}, nil
}

func (f *workerCrawler) TagResult(context.Context, string, int) (comic.SearchResultItem, error) {
	return comic.SearchResultItem{}, nil
}

func (f *workerCrawler) Login(context.Context) error { return nil }

type fakeMailer struct {
	mu      sync.Mutex
	to      string
	subject string
}

func (m *fakeMailer) Send(to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = to
	m.subject = subject
	return nil
}

type fakeIDs struct {
	mu sync.Mutex
	n  int
}

func (g *fakeIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return string(rune('a' + g.n - 1)), nil
}

func newWorkerService(t *testing.T) *comicbook.Service {
	t.Helper()
	return comicbook.NewService(comicbook.Options{
		Sessions: session.NewManager(session.Config{Timeout: 2 * time.Second}, zap.NewNop()),
		Logger:   zap.NewNop(),
	})
}

func TestWorker_SubmitDeduplicatesByHash(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewMemoryStore(clock)
	w := NewWorker(newWorkerService(t), store, nil, &fakeIDs{}, t.TempDir(), zap.NewNop())
	ctx := context.Background()

	first, created, err := w.Submit(ctx, "qq", "505430", "1-3")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, StatusInit, first.Status)

	second, created, err := w.Submit(ctx, "qq", "505430", "1-3")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	// A failed run does not block resubmission.
	require.NoError(t, store.UpdateStatus(ctx, first.ID, StatusFail, "boom"))
	third, created, err := w.Submit(ctx, "qq", "505430", "1-3")
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, third.ID)
}

func TestWorker_RunDownloadsAndNotifies(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)

	installWorkerFake(t, "task-run-ok", &workerCrawler{
		item: comic.ComicBookItem{
			Name:     "Runner",
			Chapters: []comic.Citem{{Number: 1, Title: "one"}},
		},
		chapters: map[int]comic.ChapterItem{
			1: {Number: 1, ImageURLs: []string{srv.URL + "/1.png"}},
		},
	})

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewMemoryStore(clock)
	mailer := &fakeMailer{}
	w := NewWorker(newWorkerService(t), store, mailer, &fakeIDs{}, t.TempDir(), zap.NewNop())
	ctx := context.Background()

	tk, created, err := w.Submit(ctx, "task-run-ok", "5", "")
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, w.Run(ctx, tk, "reader@example.com"))

	got, err := store.Get(ctx, tk.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDone, got.Status)
	require.Contains(t, got.Message, "written=1")
	require.Equal(t, "reader@example.com", mailer.to)
	require.Contains(t, mailer.subject, "done")
}

func TestWorker_RunRecordsFailure(t *testing.T) {
	t.Parallel()

	installWorkerFake(t, "task-run-bad", &workerCrawler{err: errors.New("index broken")})

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewMemoryStore(clock)
	w := NewWorker(newWorkerService(t), store, nil, &fakeIDs{}, t.TempDir(), zap.NewNop())
	ctx := context.Background()

	tk, _, err := w.Submit(ctx, "task-run-bad", "5", "")
	require.NoError(t, err)

	require.Error(t, w.Run(ctx, tk, ""))

	got, err := store.Get(ctx, tk.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFail, got.Status)
	require.Contains(t, got.Message, "index broken")
}
