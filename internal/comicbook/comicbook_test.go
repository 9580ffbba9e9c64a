package comicbook

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comicdl/comicdl/internal/comic"
)

func TestComicBook_ChapterResolvesLazily(t *testing.T) {
	t.Parallel()

	fake := &fakeCrawler{
		item: threeChapterItem("Lazy"),
		chapters: map[int]comic.ChapterItem{
			2: {Number: 2, Title: "two", ImageURLs: []string{"http://img/1.jpg"}},
		},
	}
	installFake(t, "book-lazy", fake)

	svc := newTestService(&fakeClock{now: time.Unix(1700000000, 0)})
	book, err := svc.ComicBook(context.Background(), "book-lazy", "5")
	require.NoError(t, err)

	ch, err := book.Chapter(2)
	require.NoError(t, err)
	require.Equal(t, 2, ch.Number())
	require.Equal(t, "two", ch.Title())

	// Metadata access alone triggers no chapter crawl.
	_, chapterCalls := fake.calls()
	require.Zero(t, chapterCalls)

	item, err := ch.Item(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"http://img/1.jpg"}, item.ImageURLs)

	_, err = ch.Item(context.Background())
	require.NoError(t, err)
	_, chapterCalls = fake.calls()
	require.Equal(t, 1, chapterCalls)
}

func TestComicBook_ChapterNotInIndex(t *testing.T) {
	t.Parallel()

	installFake(t, "book-missing", &fakeCrawler{item: threeChapterItem("Missing")})

	svc := newTestService(&fakeClock{now: time.Unix(1700000000, 0)})
	book, err := svc.ComicBook(context.Background(), "book-missing", "5")
	require.NoError(t, err)

	_, err = book.Chapter(99)
	require.ErrorIs(t, err, comic.ErrChapterNotFound)
	_, err = book.Extra(1)
	require.ErrorIs(t, err, comic.ErrChapterNotFound)
	_, err = book.Volume(1)
	require.ErrorIs(t, err, comic.ErrChapterNotFound)
}

func TestComicBook_SelectChapters(t *testing.T) {
	t.Parallel()

	installFake(t, "book-select", &fakeCrawler{item: threeChapterItem("Select")})

	svc := newTestService(&fakeClock{now: time.Unix(1700000000, 0)})
	book, err := svc.ComicBook(context.Background(), "book-select", "5")
	require.NoError(t, err)

	all, err := book.SelectChapters("")
	require.NoError(t, err)
	require.Len(t, all, 3)

	newest, err := book.SelectChapters("-1")
	require.NoError(t, err)
	require.Len(t, newest, 1)
	require.Equal(t, 3, newest[0].Number())

	_, err = book.SelectChapters("abc")
	require.Error(t, err)
}

func TestChapter_SaveAndPackage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3))))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)

	fake := &fakeCrawler{
		item: threeChapterItem("Save Me"),
		chapters: map[int]comic.ChapterItem{
			1: {Number: 1, Title: "one", ImageURLs: []string{
				srv.URL + "/a.png", srv.URL + "/b.png",
			}},
		},
	}
	installFake(t, "book-save", fake)

	svc := newTestService(&fakeClock{now: time.Unix(1700000000, 0)})
	book, err := svc.ComicBook(context.Background(), "book-save", "5")
	require.NoError(t, err)

	ch, err := book.Chapter(1)
	require.NoError(t, err)

	root := t.TempDir()
	report, dir, err := ch.Save(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 2, report.Written)
	require.True(t, report.Complete())
	require.Equal(t, filepath.Join(root, "book-save", "Save Me", "0001 one"), dir)

	for _, name := range []string{"0001.png", "0002.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
	}

	zipPath, err := ch.SaveAsZip(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, dir+".zip", zipPath)

	pdfPath, err := ch.SaveAsPDF(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, dir+".pdf", pdfPath)

	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
