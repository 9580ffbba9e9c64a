package comicbook

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/comicdl/comicdl/internal/archive"
	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/download"
	"github.com/comicdl/comicdl/internal/metrics"
	"github.com/comicdl/comicdl/internal/selector"
)

// ComicBook is a handle on one crawled comic: its parsed index plus the
// service infrastructure needed to resolve and save chapters.
type ComicBook struct {
	svc     *Service
	site    string
	crawler comic.Crawler
	item    comic.ComicBookItem
}

// Item returns the parsed index.
func (b *ComicBook) Item() comic.ComicBookItem { return b.item }

// Chapter returns a lazy handle on a main-collection chapter.
func (b *ComicBook) Chapter(number int) (*Chapter, error) {
	ref, ok := b.item.Chapter(number)
	if !ok {
		return nil, fmt.Errorf("%w: chapter %d of %s/%s",
			comic.ErrChapterNotFound, number, b.site, b.item.ComicID)
	}
	return &Chapter{book: b, ref: ref}, nil
}

// Extra returns a lazy handle on an extra-collection chapter.
func (b *ComicBook) Extra(number int) (*Chapter, error) {
	ref, ok := b.item.Extra(number)
	if !ok {
		return nil, fmt.Errorf("%w: extra %d of %s/%s",
			comic.ErrChapterNotFound, number, b.site, b.item.ComicID)
	}
	return &Chapter{book: b, ref: ref}, nil
}

// Volume returns a lazy handle on a volume-collection chapter.
func (b *ComicBook) Volume(number int) (*Chapter, error) {
	ref, ok := b.item.Volume(number)
	if !ok {
		return nil, fmt.Errorf("%w: volume %d of %s/%s",
			comic.ErrChapterNotFound, number, b.site, b.item.ComicID)
	}
	return &Chapter{book: b, ref: ref}, nil
}

// SelectChapters expands a selection expression ("1-10,15,-1", empty for
// all) into chapter handles from the main collection.
func (b *ComicBook) SelectChapters(expr string) ([]*Chapter, error) {
	numbers, err := selector.Resolve(expr, b.item.LastChapterNumber())
	if err != nil {
		return nil, err
	}
	chapters := make([]*Chapter, 0, len(numbers))
	for _, n := range numbers {
		ch, err := b.Chapter(n)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}

// Dir returns the comic's directory under root: <root>/<site>/<name>.
func (b *ComicBook) Dir(root string) string {
	return filepath.Join(root, b.site, safeName(b.item.Name))
}

// Chapter resolves its image list on first use and remembers it; metadata
// from the index is available without any network traffic.
type Chapter struct {
	book *ComicBook
	ref  comic.Citem

	mu   sync.Mutex
	item *comic.ChapterItem
}

// Number reports the chapter's 1-based number within its collection.
func (c *Chapter) Number() int { return c.ref.Number }

// Title reports the chapter title from the index.
func (c *Chapter) Title() string { return c.ref.Title }

// Item resolves and returns the chapter content. The first call hits the
// network; later calls return the remembered result.
func (c *Chapter) Item(ctx context.Context) (comic.ChapterItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.item != nil {
		return *c.item, nil
	}
	item, err := c.book.crawler.ChapterItem(ctx, c.ref)
	if err != nil {
		return comic.ChapterItem{}, err
	}
	c.item = &item
	return item, nil
}

// Dir returns the chapter's image directory under root.
func (c *Chapter) Dir(root string) string {
	return filepath.Join(c.book.Dir(root),
		safeName(fmt.Sprintf("%04d %s", c.ref.Number, c.ref.Title)))
}

// Save downloads the chapter's images into its directory under root and
// returns the batch report plus the directory written.
func (c *Chapter) Save(ctx context.Context, root string) (download.Report, string, error) {
	item, err := c.Item(ctx)
	if err != nil {
		return download.Report{}, "", err
	}
	dir := c.Dir(root)
	fetcher := c.book.svc.sessions.Session(c.book.site)
	report, err := c.book.svc.downloader.Download(ctx, fetcher, item.ImageURLs, dir)
	metrics.ObserveImages(c.book.site, report.Written, report.Skipped, len(report.Failed))
	if err != nil {
		return report, dir, err
	}
	return report, dir, nil
}

// SaveAsPDF downloads the chapter and packages the images into a PDF next
// to the image directory.
func (c *Chapter) SaveAsPDF(ctx context.Context, root string) (string, error) {
	report, dir, err := c.Save(ctx, root)
	if err != nil {
		return "", err
	}
	if report.Written+report.Skipped == 0 {
		return "", fmt.Errorf("no images saved for chapter %d", c.ref.Number)
	}
	out := dir + ".pdf"
	if err := archive.BuildPDF(dir, out); err != nil {
		return "", err
	}
	return out, nil
}

// SaveAsZip downloads the chapter and packages the images into a zip next
// to the image directory.
func (c *Chapter) SaveAsZip(ctx context.Context, root string) (string, error) {
	report, dir, err := c.Save(ctx, root)
	if err != nil {
		return "", err
	}
	if report.Written+report.Skipped == 0 {
		return "", fmt.Errorf("no images saved for chapter %d", c.ref.Number)
	}
	out := dir + ".zip"
	if err := archive.BuildZip(dir, out); err != nil {
		return "", err
	}
	return out, nil
}

// safeName strips path separators and characters that break common
// filesystems out of a display name.
func safeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "untitled"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\x00':
			return '_'
		}
		return r
	}, name)
}
