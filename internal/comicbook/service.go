// Package comicbook is the façade callers program against: it owns the
// shared infrastructure (sessions, worker pool, crawler cache, downloader)
// and exposes comic-, chapter- and site-level operations on top of the
// crawler contract.
package comicbook

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/cache"
	"github.com/comicdl/comicdl/internal/clock/system"
	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/download"
	"github.com/comicdl/comicdl/internal/pool"
	"github.com/comicdl/comicdl/internal/session"
	"github.com/comicdl/comicdl/internal/sites"
)

// Options wires a Service. Zero-value fields get working defaults.
type Options struct {
	Sessions   *session.Manager
	Runner     *pool.Runner
	Cache      *cache.Cache
	Clock      comic.Clock
	Logger     *zap.Logger
	Downloader *download.Downloader
}

// Service is the explicit context object threaded through every layer.
// One instance per process; everything it hands out shares its sessions,
// pool and cache.
type Service struct {
	sessions   *session.Manager
	runner     *pool.Runner
	cache      *cache.Cache
	clock      comic.Clock
	logger     *zap.Logger
	downloader *download.Downloader
}

// NewService builds a Service from opts, filling defaults for anything
// left nil.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = system.New()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewManager(session.Config{}, opts.Logger)
	}
	if opts.Runner == nil {
		opts.Runner = pool.New(4, opts.Logger)
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(0, opts.Clock)
	}
	if opts.Downloader == nil {
		opts.Downloader = download.New(opts.Runner, download.Config{}, opts.Logger)
	}
	return &Service{
		sessions:   opts.Sessions,
		runner:     opts.Runner,
		cache:      opts.Cache,
		clock:      opts.Clock,
		logger:     opts.Logger,
		downloader: opts.Downloader,
	}
}

// Sessions exposes the session manager for proxy and cookie management.
func (s *Service) Sessions() *session.Manager { return s.sessions }

// Sites lists the supported site keys.
func (s *Service) Sites() []string { return sites.Names() }

// crawler returns the cached, memoizing crawler for (site, comicid). The
// empty comicid is the distinct cache slot for site-level operations.
func (s *Service) crawler(site, comicid string) (comic.Crawler, error) {
	return s.cache.GetOrCreate(cache.Key{Site: site, ComicID: comicid}, func() (comic.Crawler, error) {
		c, err := sites.New(site, comicid, sites.Deps{
			Session:      s.sessions.Session(site),
			Runner:       s.runner,
			Logger:       s.logger.With(zap.String("site", site)),
			Clock:        s.clock,
			BrowserLogin: s.sessions.BrowserLogin,
		})
		if err != nil {
			return nil, err
		}
		return newMemoCrawler(c), nil
	})
}

// ComicBook fetches the comic's index and returns a handle for chapter
// operations. Within the cache TTL, repeated calls reuse the parsed index.
func (s *Service) ComicBook(ctx context.Context, site, comicid string) (*ComicBook, error) {
	crawler, err := s.crawler(site, comicid)
	if err != nil {
		return nil, err
	}
	item, err := crawler.ComicBookItem(ctx)
	if err != nil {
		return nil, err
	}
	item.Site = site
	item.ComicID = comicid
	if item.CrawledAt.IsZero() {
		item.CrawledAt = s.clock.Now()
	}
	return &ComicBook{svc: s, site: site, crawler: crawler, item: item}, nil
}

// Search runs one site's search.
func (s *Service) Search(ctx context.Context, site, name string, page, size int) (comic.SearchResultItem, error) {
	crawler, err := s.crawler(site, "")
	if err != nil {
		return comic.SearchResultItem{}, err
	}
	return crawler.Search(ctx, name, page, size)
}

// Latest lists one site's recently updated comics.
func (s *Service) Latest(ctx context.Context, site string, page int) (comic.SearchResultItem, error) {
	crawler, err := s.crawler(site, "")
	if err != nil {
		return comic.SearchResultItem{}, err
	}
	return crawler.Latest(ctx, page)
}

// Tags fetches one site's tag taxonomy.
func (s *Service) Tags(ctx context.Context, site string) (comic.TagsItem, error) {
	crawler, err := s.crawler(site, "")
	if err != nil {
		return comic.TagsItem{}, err
	}
	return crawler.Tags(ctx)
}

// TagResult lists one site's comics under a tag.
func (s *Service) TagResult(ctx context.Context, site, tag string, page int) (comic.SearchResultItem, error) {
	crawler, err := s.crawler(site, "")
	if err != nil {
		return comic.SearchResultItem{}, err
	}
	return crawler.TagResult(ctx, tag, page)
}

// Login establishes an authenticated session for the site.
func (s *Service) Login(ctx context.Context, site string) error {
	crawler, err := s.crawler(site, "")
	if err != nil {
		return err
	}
	return crawler.Login(ctx)
}

// AggregateSearch fans name out to the named sites, or every registered
// site when none are given, and flattens the rows. A site's failure is
// logged and its rows dropped; the others still report, so one broken
// source never blanks the whole result.
func (s *Service) AggregateSearch(ctx context.Context, name string, page, size int, siteKeys ...string) comic.SearchResultItem {
	names := siteKeys
	if len(names) == 0 {
		names = sites.Names()
	}
	tasks := make([]pool.Task[comic.SearchRow], 0, len(names))
	for _, site := range names {
		site := site
		tasks = append(tasks, func(ctx context.Context) ([]comic.SearchRow, error) {
			crawler, err := s.crawler(site, "")
			if err != nil {
				return nil, err
			}
			res, err := crawler.Search(ctx, name, page, size)
			if err != nil {
				return nil, err
			}
			rows := res.Rows
			for i := range rows {
				if rows[i].Site == "" {
					rows[i].Site = site
				}
			}
			return rows, nil
		})
	}

	rows := pool.Collect(ctx, s.runner, tasks)
	// Completion order is nondeterministic across sites; restore a stable
	// site grouping while keeping each site's relevance order.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Site < rows[j].Site })
	return comic.SearchResultItem{Rows: rows}
}
