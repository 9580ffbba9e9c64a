package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/comicbook"
	"github.com/comicdl/comicdl/internal/metrics"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) listSites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sites": s.svc.Sites()})
}

func (s *Server) getComic(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	comicid := chi.URLParam(r, "comicid")

	book, err := s.svc.ComicBook(r.Context(), site, comicid)
	metrics.ObserveCrawlOp(site, "comicbook", err)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book.Item())
}

func (s *Server) getChapter(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	comicid := chi.URLParam(r, "comicid")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, "chapter number must be a positive integer")
		return
	}

	book, err := s.svc.ComicBook(r.Context(), site, comicid)
	if err != nil {
		metrics.ObserveCrawlOp(site, "chapter", err)
		s.writeCrawlError(w, err)
		return
	}

	ch, err := chapterHandle(book, r.URL.Query().Get("collection"), number)
	if err != nil {
		metrics.ObserveCrawlOp(site, "chapter", err)
		s.writeCrawlError(w, err)
		return
	}
	item, err := ch.Item(r.Context())
	metrics.ObserveCrawlOp(site, "chapter", err)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	metrics.ObserveChapterSize(len(item.ImageURLs))
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter required")
		return
	}
	page := queryInt(r, "page", 1)
	size := clamp(queryInt(r, "size", defaultPageSize), 1, maxPageSize)

	res, err := s.svc.Search(r.Context(), site, name, page, size)
	metrics.ObserveCrawlOp(site, "search", err)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) aggregateSearch(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter required")
		return
	}
	page := queryInt(r, "page", 1)
	size := clamp(queryInt(r, "size", defaultPageSize), 1, maxPageSize)

	res := s.svc.AggregateSearch(r.Context(), name, page, size)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	page := queryInt(r, "page", 1)

	res, err := s.svc.Latest(r.Context(), site, page)
	metrics.ObserveCrawlOp(site, "latest", err)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) tags(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")

	res, err := s.svc.Tags(r.Context(), site)
	metrics.ObserveCrawlOp(site, "tags", err)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) tagResult(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil || tag == "" {
		writeError(w, http.StatusBadRequest, "invalid tag")
		return
	}
	page := queryInt(r, "page", 1)

	res, err := s.svc.TagResult(r.Context(), site, tag, page)
	metrics.ObserveCrawlOp(site, "tag_result", err)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// chapterHandle picks a chapter handle from the named collection; the
// main chapter list is the default.
func chapterHandle(book *comicbook.ComicBook, collection string, number int) (*comicbook.Chapter, error) {
	switch collection {
	case "", "chapters":
		return book.Chapter(number)
	case "extras":
		return book.Extra(number)
	case "volumes":
		return book.Volume(number)
	default:
		return nil, fmt.Errorf("%w: unknown collection %q", comic.ErrChapterNotFound, collection)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
