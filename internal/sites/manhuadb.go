package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/session"
)

// The manhuadb adapter speaks an undocumented JSON API. Chapter payloads
// come back binary-packed and XOR-obfuscated; resolution exchanges a
// token from the index payload for the image list. Some content sits
// behind a login wall, driven through a browser session.

const manhuadbDefaultBaseURL = "https://www.manhuadb.com"

// manhuadbSessionCookie marks a completed login.
const manhuadbSessionCookie = "mdb_session"

func init() {
	Register("manhuadb", func(comicid string, deps Deps) comic.Crawler {
		return newManhuadb(comicid, deps, manhuadbDefaultBaseURL)
	})
}

type manhuadbCrawler struct {
	base
	baseURL string
}

func newManhuadb(comicid string, deps Deps, baseURL string) *manhuadbCrawler {
	return &manhuadbCrawler{
		base:    newBase("manhuadb", comicid, deps),
		baseURL: baseURL,
	}
}

type manhuadbComic struct {
	Data struct {
		Title       string            `json:"title"`
		Author      string            `json:"author"`
		Summary     string            `json:"summary"`
		Cover       string            `json:"cover"`
		Status      string            `json:"status"`
		LastUpdated string            `json:"last_updated"`
		Chapters    []manhuadbChapter `json:"chapters"`
		Extras      []manhuadbChapter `json:"extras"`
		Volumes     []manhuadbChapter `json:"volumes"`
	} `json:"data"`
}

type manhuadbChapter struct {
	ID    uint32 `json:"id"`
	Title string `json:"title"`
	Token string `json:"token"`
}

type manhuadbRows struct {
	Data struct {
		Results []struct {
			ID     uint32 `json:"id"`
			Title  string `json:"title"`
			Cover  string `json:"cover"`
			Status string `json:"status"`
		} `json:"results"`
	} `json:"data"`
}

// ComicBookItem reads the comic index from the JSON API. All three
// chapter collections (main, extras, volumes) are populated when the
// source provides them.
func (m *manhuadbCrawler) ComicBookItem(ctx context.Context) (comic.ComicBookItem, error) {
	apiURL := fmt.Sprintf("%s/api/v1/comics/%s", m.baseURL, m.comicid)
	var payload manhuadbComic
	if err := m.fetchJSON(ctx, apiURL, &payload); err != nil {
		return comic.ComicBookItem{}, manhuadbNotFound(err, m.comicid)
	}
	if payload.Data.Title == "" {
		return comic.ComicBookItem{}, fmt.Errorf("%w: manhuadb/%s", comic.ErrComicbookNotFound, m.comicid)
	}

	item := comic.ComicBookItem{
		ComicID:     m.comicid,
		Name:        payload.Data.Title,
		Description: payload.Data.Summary,
		CoverURL:    payload.Data.Cover,
		Author:      payload.Data.Author,
		SourceURL:   fmt.Sprintf("%s/manhua/%s", m.baseURL, m.comicid),
		SourceName:  "漫画DB",
		Site:        "manhuadb",
		Status:      manhuadbStatus(payload.Data.Status),
		LastUpdated: payload.Data.LastUpdated,
		CrawledAt:   m.deps.Clock.Now(),
	}
	item.Chapters = m.citems(payload.Data.Chapters)
	item.Extras = m.citems(payload.Data.Extras)
	item.Volumes = m.citems(payload.Data.Volumes)
	return item, nil
}

func (m *manhuadbCrawler) citems(chapters []manhuadbChapter) []comic.Citem {
	var refs []comic.Citem
	for i, ch := range chapters {
		refs = append(refs, comic.Citem{
			Number:    i + 1,
			Title:     ch.Title,
			SourceURL: fmt.Sprintf("%s/manhua/%s/%d", m.baseURL, m.comicid, ch.ID),
			Kind:      comic.ResolveAPIToken,
			ContentID: strconv.FormatUint(uint64(ch.ID), 10),
			Token:     ch.Token,
		})
	}
	return refs
}

// ChapterItem exchanges the chapter token for the packed payload and
// unscrambles it into the image list.
func (m *manhuadbCrawler) ChapterItem(ctx context.Context, citem comic.Citem) (comic.ChapterItem, error) {
	comicID, err := strconv.ParseUint(m.comicid, 10, 32)
	if err != nil {
		return comic.ChapterItem{}, fmt.Errorf("%w: manhuadb id %q is not numeric", comic.ErrComicbookNotFound, m.comicid)
	}
	chapterID, err := strconv.ParseUint(citem.ContentID, 10, 32)
	if err != nil {
		return comic.ChapterItem{}, fmt.Errorf("%w: bad chapter reference %q", comic.ErrChapterNotFound, citem.ContentID)
	}

	apiURL := fmt.Sprintf("%s/api/v1/chapters/%s?token=%s",
		m.baseURL, citem.ContentID, url.QueryEscape(citem.Token))
	packed, err := m.fetch(ctx, apiURL)
	if err != nil {
		return comic.ChapterItem{}, manhuadbChapterNotFound(err, citem.Number)
	}

	plain, err := unscramblePacked(packed, uint32(comicID), uint32(chapterID))
	if err != nil {
		return comic.ChapterItem{}, fmt.Errorf("unscramble chapter %d: %w", citem.Number, err)
	}
	var body struct {
		Images []string `json:"images"`
	}
	if err := json.Unmarshal(plain, &body); err != nil {
		return comic.ChapterItem{}, fmt.Errorf("parse chapter %d payload: %w", citem.Number, err)
	}
	if len(body.Images) == 0 {
		return comic.ChapterItem{}, fmt.Errorf("%w: manhuadb chapter %d", comic.ErrChapterNotFound, citem.Number)
	}

	return comic.ChapterItem{
		Number:    citem.Number,
		Title:     citem.Title,
		ImageURLs: body.Images,
		SourceURL: citem.SourceURL,
	}, nil
}

// Search queries the API with soft pagination.
func (m *manhuadbCrawler) Search(ctx context.Context, name string, page, size int) (comic.SearchResultItem, error) {
	apiURL := fmt.Sprintf("%s/api/v1/search?q=%s&page=%d&size=%d",
		m.baseURL, url.QueryEscape(name), page, size)
	return m.listRows(ctx, apiURL)
}

// Latest lists recently updated comics.
func (m *manhuadbCrawler) Latest(ctx context.Context, page int) (comic.SearchResultItem, error) {
	return m.listRows(ctx, fmt.Sprintf("%s/api/v1/updates?page=%d", m.baseURL, page))
}

// Tags loads the taxonomy endpoint, cached per instance.
func (m *manhuadbCrawler) Tags(ctx context.Context) (comic.TagsItem, error) {
	return m.cachedTags(ctx, m.loadTags)
}

func (m *manhuadbCrawler) loadTags(ctx context.Context) (comic.TagsItem, error) {
	var payload struct {
		Data []struct {
			Category string `json:"category"`
			Tags     []struct {
				Name string `json:"name"`
				ID   string `json:"id"`
			} `json:"tags"`
		} `json:"data"`
	}
	if err := m.fetchJSON(ctx, m.baseURL+"/api/v1/tags", &payload); err != nil {
		return comic.TagsItem{}, err
	}
	var tags comic.TagsItem
	for _, c := range payload.Data {
		cat := comic.TagCategory{Category: c.Category}
		for _, t := range c.Tags {
			cat.Tags = append(cat.Tags, comic.Tag{Name: t.Name, ID: t.ID})
		}
		tags.Categories = append(tags.Categories, cat)
	}
	return tags, nil
}

// TagResult lists comics under a tag.
func (m *manhuadbCrawler) TagResult(ctx context.Context, tag string, page int) (comic.SearchResultItem, error) {
	id, err := m.resolveTag(ctx, tag, m.loadTags)
	if err != nil {
		return emptyResult(), err
	}
	return m.listRows(ctx, fmt.Sprintf("%s/api/v1/tags/%s/comics?page=%d", m.baseURL, id, page))
}

// Login drives a browser session on the site's login page and persists
// the captured cookies, so later API calls reuse them.
func (m *manhuadbCrawler) Login(ctx context.Context) error {
	if m.deps.BrowserLogin == nil {
		return fmt.Errorf("manhuadb login requires a browser login hook")
	}
	return m.deps.BrowserLogin(ctx, m.site, session.LoginOptions{
		LoginURL:   m.baseURL + "/login",
		WaitCookie: manhuadbSessionCookie,
		Timeout:    3 * time.Minute,
	})
}

func (m *manhuadbCrawler) listRows(ctx context.Context, apiURL string) (comic.SearchResultItem, error) {
	var payload manhuadbRows
	if err := m.fetchJSON(ctx, apiURL, &payload); err != nil {
		return emptyResult(), err
	}
	var rows []comic.SearchRow
	for _, r := range payload.Data.Results {
		id := strconv.FormatUint(uint64(r.ID), 10)
		rows = append(rows, comic.SearchRow{
			ComicID:   id,
			Name:      r.Title,
			CoverURL:  r.Cover,
			SourceURL: fmt.Sprintf("%s/manhua/%s", m.baseURL, id),
			Status:    manhuadbStatus(r.Status),
			Site:      "manhuadb",
		})
	}
	return comic.SearchResultItem{Rows: rows}, nil
}

// manhuadbNotFound keeps transport errors intact but maps a 404 from the
// comic endpoint onto the not-found kind.
func manhuadbNotFound(err error, comicid string) error {
	if isStatusNotFound(err) {
		return fmt.Errorf("%w: manhuadb/%s", comic.ErrComicbookNotFound, comicid)
	}
	return err
}

func manhuadbChapterNotFound(err error, number int) error {
	if isStatusNotFound(err) {
		return fmt.Errorf("%w: manhuadb chapter %d", comic.ErrChapterNotFound, number)
	}
	return err
}

func manhuadbStatus(raw string) comic.Status {
	switch raw {
	case "completed", "完结":
		return comic.StatusCompleted
	case "ongoing", "连载":
		return comic.StatusOngoing
	default:
		return comic.StatusUnknown
	}
}
