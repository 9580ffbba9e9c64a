// Package comic defines core types shared across subsystems.
package comic

import "time"

// Status describes the publication state a source reports for a comic.
type Status string

// Publication states normalized across sources.
const (
	StatusUnknown   Status = "unknown"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// Tag is a (name, id) pair in a site's tag taxonomy. Ids are site-native
// and meaningless across sites.
type Tag struct {
	Name string `json:"name"`
	ID   string `json:"tag_id"`
}

// TagsItem groups a site's tag taxonomy by category.
type TagsItem struct {
	Categories []TagCategory `json:"categories"`
}

// TagCategory is one named group of tags.
type TagCategory struct {
	Category string `json:"category"`
	Tags     []Tag  `json:"tags"`
}

// Find resolves a tag name to its site-native id across all categories.
func (t TagsItem) Find(name string) (string, bool) {
	for _, c := range t.Categories {
		for _, tag := range c.Tags {
			if tag.Name == name {
				return tag.ID, true
			}
		}
	}
	return "", false
}

// ResolveKind selects how a chapter reference turns into an image list.
type ResolveKind int

// Resolution strategies carried as data on a chapter reference.
const (
	// ResolveDirectList means the chapter detail response embeds the full
	// image URL list in one payload.
	ResolveDirectList ResolveKind = iota
	// ResolvePagedFetch means the chapter spans multiple physical pages,
	// each fetched separately and merged in page order.
	ResolvePagedFetch
	// ResolveAPIToken means a second API call exchanges a content token
	// for the image list.
	ResolveAPIToken
)

// Citem is a crawler-private chapter reference: produced while building a
// ComicBookItem, consumed later to resolve a ChapterItem. The external
// identifier is the synthetic 1-based Number assigned in crawl enumeration
// order; site-native ids live in the strategy fields.
type Citem struct {
	Number    int         `json:"chapter_number"`
	Title     string      `json:"title"`
	SourceURL string      `json:"source_url"`
	Kind      ResolveKind `json:"-"`

	// Strategy parameters. Which fields are meaningful depends on Kind.
	ContentID string `json:"-"` // DirectList/APIToken: site-native content id
	PageCount int    `json:"-"` // PagedFetch: number of physical pages
	Token     string `json:"-"` // APIToken: opaque token from the index payload
}

// ComicBookItem is the normalized comic identity returned by a crawler.
// Chapter numbers within each collection are unique positive integers
// assigned by crawl-time enumeration order.
type ComicBookItem struct {
	ComicID     string    `json:"comicid"`
	Name        string    `json:"name"`
	Description string    `json:"desc"`
	CoverURL    string    `json:"cover_image_url"`
	Author      string    `json:"author"`
	SourceURL   string    `json:"source_url"`
	SourceName  string    `json:"source_name"`
	Site        string    `json:"site"`
	Status      Status    `json:"status"`
	LastUpdated string    `json:"last_update_time"`
	CrawledAt   time.Time `json:"crawl_time"`
	Tags        []Tag     `json:"tags"`

	Chapters []Citem `json:"chapters"`
	Extras   []Citem `json:"ext_chapters"`
	Volumes  []Citem `json:"volumes"`
}

// Chapter returns the main-collection reference with the given number.
func (c ComicBookItem) Chapter(number int) (Citem, bool) {
	return findCitem(c.Chapters, number)
}

// Extra returns the extra-collection reference with the given number.
func (c ComicBookItem) Extra(number int) (Citem, bool) {
	return findCitem(c.Extras, number)
}

// Volume returns the volume-collection reference with the given number.
func (c ComicBookItem) Volume(number int) (Citem, bool) {
	return findCitem(c.Volumes, number)
}

// LastChapterNumber reports the highest main chapter number, 0 when empty.
func (c ComicBookItem) LastChapterNumber() int {
	if len(c.Chapters) == 0 {
		return 0
	}
	return c.Chapters[len(c.Chapters)-1].Number
}

func findCitem(refs []Citem, number int) (Citem, bool) {
	for _, r := range refs {
		if r.Number == number {
			return r, true
		}
	}
	return Citem{}, false
}

// ChapterItem is one chapter's content. ImageURLs ordering is reading
// order; reordering it is a correctness bug.
type ChapterItem struct {
	Number    int      `json:"chapter_number"`
	Title     string   `json:"title"`
	ImageURLs []string `json:"image_urls"`
	SourceURL string   `json:"source_url"`
}

// SearchRow is one lightweight result produced by search/latest/tag
// listing operations.
type SearchRow struct {
	ComicID   string `json:"comicid"`
	Name      string `json:"name"`
	CoverURL  string `json:"cover_image_url"`
	SourceURL string `json:"source_url"`
	Status    Status `json:"status"`
	Site      string `json:"site"`
}

// SearchResultItem is an ordered collection of search rows.
type SearchResultItem struct {
	Rows []SearchRow `json:"rows"`
}
