package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/comicdl/comicdl/internal/comic"
)

// The qq adapter reads Tencent's comic portal. Comic and chapter pages
// embed their real payload as a salted base64 JSON blob in an inline
// `var DATA` script; listing pages are plain HTML.

const qqDefaultBaseURL = "https://ac.qq.com"

func init() {
	Register("qq", func(comicid string, deps Deps) comic.Crawler {
		return newQQ(comicid, deps, qqDefaultBaseURL)
	})
}

type qqCrawler struct {
	base
	noLogin
	baseURL string
}

func newQQ(comicid string, deps Deps, baseURL string) *qqCrawler {
	return &qqCrawler{
		base:    newBase("qq", comicid, deps),
		baseURL: baseURL,
	}
}

type qqPayload struct {
	Comic struct {
		Title      string `json:"title"`
		BriefIntro string `json:"brief_intrd"`
		ArtistName string `json:"artist_name"`
		CoverURL   string `json:"cover_url"`
		IsFinish   int    `json:"is_finish"`
	} `json:"comic"`
	ChapterList []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"chapter_list"`
	Picture []struct {
		URL string `json:"url"`
	} `json:"picture"`
	LastUpdate string `json:"last_update"`
}

func (q *qqCrawler) payload(ctx context.Context, url string) (qqPayload, bool, error) {
	body, err := q.fetch(ctx, url)
	if err != nil {
		return qqPayload{}, false, err
	}
	raw, ok := extractDataVar(body)
	if !ok {
		return qqPayload{}, false, nil
	}
	decoded, err := decodeSaltedBase64(raw)
	if err != nil {
		return qqPayload{}, false, fmt.Errorf("decode payload %s: %w", url, err)
	}
	var p qqPayload
	if err := json.Unmarshal(decoded, &p); err != nil {
		return qqPayload{}, false, fmt.Errorf("parse payload %s: %w", url, err)
	}
	return p, true, nil
}

// ComicBookItem fetches the comic page and builds the normalized item.
func (q *qqCrawler) ComicBookItem(ctx context.Context) (comic.ComicBookItem, error) {
	url := fmt.Sprintf("%s/Comic/comicInfo/id/%s", q.baseURL, q.comicid)
	p, ok, err := q.payload(ctx, url)
	if err != nil {
		return comic.ComicBookItem{}, err
	}
	if !ok || p.Comic.Title == "" {
		return comic.ComicBookItem{}, fmt.Errorf("%w: qq/%s", comic.ErrComicbookNotFound, q.comicid)
	}

	item := comic.ComicBookItem{
		ComicID:     q.comicid,
		Name:        p.Comic.Title,
		Description: p.Comic.BriefIntro,
		CoverURL:    p.Comic.CoverURL,
		Author:      p.Comic.ArtistName,
		SourceURL:   url,
		SourceName:  "腾讯漫画",
		Site:        "qq",
		Status:      qqStatus(p.Comic.IsFinish),
		LastUpdated: p.LastUpdate,
		CrawledAt:   q.deps.Clock.Now(),
	}
	for i, ch := range p.ChapterList {
		item.Chapters = append(item.Chapters, comic.Citem{
			Number:    i + 1,
			Title:     ch.Title,
			SourceURL: fmt.Sprintf("%s/ComicView/index/id/%s/cid/%s", q.baseURL, q.comicid, ch.ID),
			Kind:      comic.ResolveDirectList,
			ContentID: ch.ID,
		})
	}
	return item, nil
}

// ChapterItem resolves a chapter's image list from its viewer page.
func (q *qqCrawler) ChapterItem(ctx context.Context, citem comic.Citem) (comic.ChapterItem, error) {
	url := fmt.Sprintf("%s/ComicView/index/id/%s/cid/%s", q.baseURL, q.comicid, citem.ContentID)
	p, ok, err := q.payload(ctx, url)
	if err != nil {
		return comic.ChapterItem{}, err
	}
	if !ok || len(p.Picture) == 0 {
		return comic.ChapterItem{}, fmt.Errorf("%w: qq/%s chapter %d", comic.ErrChapterNotFound, q.comicid, citem.Number)
	}

	item := comic.ChapterItem{
		Number:    citem.Number,
		Title:     citem.Title,
		SourceURL: url,
	}
	for _, pic := range p.Picture {
		item.ImageURLs = append(item.ImageURLs, pic.URL)
	}
	return item, nil
}

// Search queries the site's search listing. Out-of-range pages come back
// empty, not as errors.
func (q *qqCrawler) Search(ctx context.Context, name string, page, size int) (comic.SearchResultItem, error) {
	url := fmt.Sprintf("%s/Comic/searchList/search/%s/page/%d", q.baseURL, name, page)
	doc, err := q.document(ctx, url)
	if err != nil {
		return emptyResult(), err
	}
	rows := q.parseBookList(doc)
	if size > 0 && len(rows) > size {
		rows = rows[:size]
	}
	return comic.SearchResultItem{Rows: rows}, nil
}

// Latest lists recently updated comics.
func (q *qqCrawler) Latest(ctx context.Context, page int) (comic.SearchResultItem, error) {
	url := fmt.Sprintf("%s/Comic/all/search/time/page/%d", q.baseURL, page)
	doc, err := q.document(ctx, url)
	if err != nil {
		return emptyResult(), err
	}
	return comic.SearchResultItem{Rows: q.parseBookList(doc)}, nil
}

// Tags scrapes the catalog filter blocks into the tag taxonomy.
func (q *qqCrawler) Tags(ctx context.Context) (comic.TagsItem, error) {
	return q.cachedTags(ctx, q.loadTags)
}

func (q *qqCrawler) loadTags(ctx context.Context) (comic.TagsItem, error) {
	doc, err := q.document(ctx, q.baseURL+"/Comic/all")
	if err != nil {
		return comic.TagsItem{}, err
	}
	var tags comic.TagsItem
	doc.Find("div.ret-tags-type").Each(func(_ int, block *goquery.Selection) {
		cat := comic.TagCategory{
			Category: strings.TrimSpace(block.Find("h4").Text()),
		}
		block.Find("a[data-id]").Each(func(_ int, a *goquery.Selection) {
			id, _ := a.Attr("data-id")
			cat.Tags = append(cat.Tags, comic.Tag{
				Name: strings.TrimSpace(a.Text()),
				ID:   id,
			})
		})
		if len(cat.Tags) > 0 {
			tags.Categories = append(tags.Categories, cat)
		}
	})
	return tags, nil
}

// TagResult lists comics under a tag, resolving names through the cached
// taxonomy first.
func (q *qqCrawler) TagResult(ctx context.Context, tag string, page int) (comic.SearchResultItem, error) {
	id, err := q.resolveTag(ctx, tag, q.loadTags)
	if err != nil {
		return emptyResult(), err
	}
	url := fmt.Sprintf("%s/Comic/all/theme/%s/search/time/page/%d", q.baseURL, id, page)
	doc, err := q.document(ctx, url)
	if err != nil {
		return emptyResult(), err
	}
	return comic.SearchResultItem{Rows: q.parseBookList(doc)}, nil
}

func (q *qqCrawler) parseBookList(doc *goquery.Document) []comic.SearchRow {
	var rows []comic.SearchRow
	doc.Find("ul.mod_book_list li.mod_book").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a.mod_book_cover")
		href, _ := a.Attr("href")
		title, _ := a.Attr("title")
		img, _ := a.Find("img").Attr("src")
		rows = append(rows, comic.SearchRow{
			ComicID:   qqComicIDFromHref(href),
			Name:      strings.TrimSpace(title),
			CoverURL:  img,
			SourceURL: q.baseURL + href,
			Status:    comic.StatusUnknown,
			Site:      "qq",
		})
	})
	return rows
}

// qqComicIDFromHref pulls the trailing id out of hrefs like /Comic/comicInfo/id/505430.
func qqComicIDFromHref(href string) string {
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

func qqStatus(isFinish int) comic.Status {
	if isFinish == 2 {
		return comic.StatusCompleted
	}
	return comic.StatusOngoing
}
