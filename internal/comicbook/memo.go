package comicbook

import (
	"context"
	"sync"

	"github.com/comicdl/comicdl/internal/comic"
)

// memoCrawler caches the expensive crawler calls for the instance's
// lifetime. The instance itself lives in the TTL cache, so staleness is
// bounded by the cache, not by this wrapper.
type memoCrawler struct {
	comic.Crawler

	mu       sync.Mutex
	index    *comic.ComicBookItem
	chapters map[comic.Citem]comic.ChapterItem
}

func newMemoCrawler(c comic.Crawler) *memoCrawler {
	return &memoCrawler{
		Crawler:  c,
		chapters: make(map[comic.Citem]comic.ChapterItem),
	}
}

func (m *memoCrawler) ComicBookItem(ctx context.Context) (comic.ComicBookItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index != nil {
		return *m.index, nil
	}
	item, err := m.Crawler.ComicBookItem(ctx)
	if err != nil {
		return comic.ComicBookItem{}, err
	}
	m.index = &item
	return item, nil
}

func (m *memoCrawler) ChapterItem(ctx context.Context, citem comic.Citem) (comic.ChapterItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.chapters[citem]; ok {
		return item, nil
	}
	item, err := m.Crawler.ChapterItem(ctx, citem)
	if err != nil {
		return comic.ChapterItem{}, err
	}
	m.chapters[citem] = item
	return item, nil
}
