package sites

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/pool"
)

// The u17 adapter scrapes plain HTML. Long chapters span several physical
// viewer pages, so chapter resolution fans one fetch per page out through
// the runner and reassembles the image list in page order.

const u17DefaultBaseURL = "https://www.u17.com"

func init() {
	Register("u17", func(comicid string, deps Deps) comic.Crawler {
		return newU17(comicid, deps, u17DefaultBaseURL)
	})
}

type u17Crawler struct {
	base
	noLogin
	baseURL string
}

func newU17(comicid string, deps Deps, baseURL string) *u17Crawler {
	return &u17Crawler{
		base:    newBase("u17", comicid, deps),
		baseURL: baseURL,
	}
}

// ComicBookItem scrapes the comic page for metadata and the chapter index.
func (u *u17Crawler) ComicBookItem(ctx context.Context) (comic.ComicBookItem, error) {
	url := fmt.Sprintf("%s/comic/%s.html", u.baseURL, u.comicid)
	doc, err := u.document(ctx, url)
	if err != nil {
		return comic.ComicBookItem{}, err
	}

	name := strings.TrimSpace(doc.Find("div.comic_info h1").Text())
	if name == "" {
		return comic.ComicBookItem{}, fmt.Errorf("%w: u17/%s", comic.ErrComicbookNotFound, u.comicid)
	}

	item := comic.ComicBookItem{
		ComicID:     u.comicid,
		Name:        name,
		Description: strings.TrimSpace(doc.Find("p.words").Text()),
		Author:      strings.TrimSpace(doc.Find("div.author_info a.name").Text()),
		CoverURL:    firstAttr(doc.Find("div.comic_info img.cover"), "src"),
		SourceURL:   url,
		SourceName:  "有妖气",
		Site:        "u17",
		Status:      u17Status(doc.Find("div.comic_info span.fl").Text()),
		LastUpdated: strings.TrimSpace(doc.Find("span.update_time").Text()),
		CrawledAt:   u.deps.Clock.Now(),
	}

	doc.Find("ul#chapter li a").Each(func(i int, a *goquery.Selection) {
		pages := 1
		if raw, ok := a.Attr("data-pages"); ok {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				pages = n
			}
		}
		href, _ := a.Attr("href")
		item.Chapters = append(item.Chapters, comic.Citem{
			Number:    i + 1,
			Title:     strings.TrimSpace(a.Text()),
			SourceURL: u.absoluteURL(href),
			Kind:      comic.ResolvePagedFetch,
			ContentID: u17ChapterID(href),
			PageCount: pages,
		})
	})
	return item, nil
}

type u17Page struct {
	index int
	urls  []string
}

// ChapterItem fans one task per physical page out through the runner and
// merges the results in page order. A failed page is logged and skipped,
// matching the batch contract; the chapter fails only when every page does.
func (u *u17Crawler) ChapterItem(ctx context.Context, citem comic.Citem) (comic.ChapterItem, error) {
	pages := citem.PageCount
	if pages < 1 {
		pages = 1
	}

	tasks := make([]pool.Task[u17Page], 0, pages)
	for p := 1; p <= pages; p++ {
		page := p
		tasks = append(tasks, func(ctx context.Context) ([]u17Page, error) {
			urls, err := u.chapterPageImages(ctx, citem.ContentID, page)
			if err != nil {
				return nil, err
			}
			return []u17Page{{index: page, urls: urls}}, nil
		})
	}

	results := pool.Collect(ctx, u.deps.Runner, tasks)
	if len(results) == 0 {
		return comic.ChapterItem{}, fmt.Errorf("%w: u17/%s chapter %d", comic.ErrChapterNotFound, u.comicid, citem.Number)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	item := comic.ChapterItem{
		Number:    citem.Number,
		Title:     citem.Title,
		SourceURL: citem.SourceURL,
	}
	for _, r := range results {
		item.ImageURLs = append(item.ImageURLs, r.urls...)
	}
	return item, nil
}

func (u *u17Crawler) chapterPageImages(ctx context.Context, chapterID string, page int) ([]string, error) {
	url := fmt.Sprintf("%s/chapter/%s_%d.html", u.baseURL, chapterID, page)
	doc, err := u.document(ctx, url)
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("div.image_area img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("data-src"); ok && src != "" {
			urls = append(urls, src)
			return
		}
		if src, ok := img.Attr("src"); ok && src != "" {
			urls = append(urls, src)
		}
	})
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: empty viewer page %s", comic.ErrChapterNotFound, url)
	}
	return urls, nil
}

// Search queries the site search with soft pagination.
func (u *u17Crawler) Search(ctx context.Context, name string, page, size int) (comic.SearchResultItem, error) {
	url := fmt.Sprintf("%s/search/?q=%s&page=%d", u.baseURL, name, page)
	doc, err := u.document(ctx, url)
	if err != nil {
		return emptyResult(), err
	}
	rows := u.parseResultList(doc)
	if size > 0 && len(rows) > size {
		rows = rows[:size]
	}
	return comic.SearchResultItem{Rows: rows}, nil
}

// Latest lists recently updated comics.
func (u *u17Crawler) Latest(ctx context.Context, page int) (comic.SearchResultItem, error) {
	url := fmt.Sprintf("%s/update/page/%d", u.baseURL, page)
	doc, err := u.document(ctx, url)
	if err != nil {
		return emptyResult(), err
	}
	return comic.SearchResultItem{Rows: u.parseResultList(doc)}, nil
}

// Tags scrapes the category sidebar.
func (u *u17Crawler) Tags(ctx context.Context) (comic.TagsItem, error) {
	return u.cachedTags(ctx, u.loadTags)
}

func (u *u17Crawler) loadTags(ctx context.Context) (comic.TagsItem, error) {
	doc, err := u.document(ctx, u.baseURL+"/category")
	if err != nil {
		return comic.TagsItem{}, err
	}
	var tags comic.TagsItem
	doc.Find("div.category_group").Each(func(_ int, block *goquery.Selection) {
		cat := comic.TagCategory{
			Category: strings.TrimSpace(block.Find("h3").Text()),
		}
		block.Find("a[data-tag]").Each(func(_ int, a *goquery.Selection) {
			id, _ := a.Attr("data-tag")
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

// TagResult lists comics under a tag.
func (u *u17Crawler) TagResult(ctx context.Context, tag string, page int) (comic.SearchResultItem, error) {
	id, err := u.resolveTag(ctx, tag, u.loadTags)
	if err != nil {
		return emptyResult(), err
	}
	url := fmt.Sprintf("%s/category/%s/page/%d", u.baseURL, id, page)
	doc, err := u.document(ctx, url)
	if err != nil {
		return emptyResult(), err
	}
	return comic.SearchResultItem{Rows: u.parseResultList(doc)}, nil
}

func (u *u17Crawler) parseResultList(doc *goquery.Document) []comic.SearchRow {
	var rows []comic.SearchRow
	doc.Find("div.comiclist ul li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").First()
		href, _ := a.Attr("href")
		rows = append(rows, comic.SearchRow{
			ComicID:   u17ComicID(href),
			Name:      strings.TrimSpace(li.Find("h2").Text()),
			CoverURL:  firstAttr(li.Find("img"), "src"),
			SourceURL: u.absoluteURL(href),
			Status:    comic.StatusUnknown,
			Site:      "u17",
		})
	})
	return rows
}

func (u *u17Crawler) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return u.baseURL + href
}

// u17ComicID extracts the id from hrefs like /comic/195.html.
func u17ComicID(href string) string {
	href = strings.TrimSuffix(href, ".html")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

// u17ChapterID extracts the id from hrefs like /chapter/9527_1.html.
func u17ChapterID(href string) string {
	href = strings.TrimSuffix(href, ".html")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[i+1:]
	}
	if i := strings.Index(href, "_"); i >= 0 {
		return href[:i]
	}
	return href
}

func u17Status(raw string) comic.Status {
	switch {
	case strings.Contains(raw, "完结"):
		return comic.StatusCompleted
	case strings.Contains(raw, "连载"):
		return comic.StatusOngoing
	default:
		return comic.StatusUnknown
	}
}

func firstAttr(sel *goquery.Selection, name string) string {
	v, _ := sel.First().Attr(name)
	return v
}
