package sites

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/comicdl/comicdl/internal/comic"
)

// base supplies the shared behavior adapters delegate to explicitly:
// request dispatch through the site session, parsing helpers, and the
// per-instance tag cache used for tag-name resolution.
type base struct {
	site    string
	comicid string
	deps    Deps

	tagMu     sync.Mutex
	tagLoaded bool
	tagCache  comic.TagsItem
}

func newBase(site, comicid string, deps Deps) base {
	return base{site: site, comicid: comicid, deps: deps}
}

func (b *base) fetch(ctx context.Context, url string) ([]byte, error) {
	return b.deps.Session.Fetch(ctx, url, nil)
}

func (b *base) fetchJSON(ctx context.Context, url string, v any) error {
	body, err := b.deps.Session.Fetch(ctx, url, jsonHeaders())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (b *base) document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := b.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// cachedTags loads the tag taxonomy once per crawler instance and reuses
// it for every later resolution.
func (b *base) cachedTags(ctx context.Context, load func(context.Context) (comic.TagsItem, error)) (comic.TagsItem, error) {
	b.tagMu.Lock()
	defer b.tagMu.Unlock()
	if b.tagLoaded {
		return b.tagCache, nil
	}
	tags, err := load(ctx)
	if err != nil {
		return comic.TagsItem{}, err
	}
	b.tagCache = tags
	b.tagLoaded = true
	return tags, nil
}

// resolveTag maps a tag name to its site-native id via the cached
// taxonomy. Names that do not appear pass through unchanged, since the
// caller may already hold an id.
func (b *base) resolveTag(ctx context.Context, tag string, load func(context.Context) (comic.TagsItem, error)) (string, error) {
	tags, err := b.cachedTags(ctx, load)
	if err != nil {
		return "", err
	}
	if id, ok := tags.Find(tag); ok {
		return id, nil
	}
	return tag, nil
}

func jsonHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	return h
}

// emptyResult is the soft-pagination fallback: out-of-range pages return
// an empty result rather than erroring, because pagination bounds are
// unknown a priori for most sources.
func emptyResult() comic.SearchResultItem {
	return comic.SearchResultItem{}
}

// noLogin is the default Login behavior for sites without authentication.
type noLogin struct{}

// Login is a no-op.
func (noLogin) Login(context.Context) error { return nil }

// isStatusNotFound reports whether err is a transport error carrying a
// 404 status.
func isStatusNotFound(err error) bool {
	var urlErr *comic.URLError
	return errors.As(err, &urlErr) && urlErr.StatusCode == http.StatusNotFound
}
