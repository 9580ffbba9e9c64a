// Package sites holds the static crawler registry and the per-site
// adapters. Each adapter is thin, disposable glue behind the capability
// contract in internal/comic; the registry and shared helpers are the
// stable part.
package sites

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/clock/system"
	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/pool"
	"github.com/comicdl/comicdl/internal/session"
)

// Deps carries the shared infrastructure every adapter uses. The session
// is keyed by site and shared across instances of the same site.
type Deps struct {
	Session *session.Session
	Runner  *pool.Runner
	Logger  *zap.Logger
	Clock   comic.Clock
	// BrowserLogin is the hook adapters with a login wall use to drive a
	// browser session; wired to the session manager in the server.
	BrowserLogin session.LoginFunc
}

// Factory builds a crawler bound to one comic id. An empty comicid is
// valid for site-level operations (search, latest, tags).
type Factory func(comicid string, deps Deps) comic.Crawler

var (
	regMu     sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a site factory. Registration is static: adapters register
// from init, and duplicate keys are a programming error.
func Register(site string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := factories[site]; dup {
		panic(fmt.Sprintf("sites: duplicate registration for %q", site))
	}
	factories[site] = f
}

// New constructs a crawler for (site, comicid). Unknown sites fail with
// comic.ErrSiteNotSupport.
func New(site, comicid string, deps Deps) (comic.Crawler, error) {
	regMu.RLock()
	f, ok := factories[site]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", comic.ErrSiteNotSupport, site)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	return f(comicid, deps), nil
}

// Names lists registered site keys in sorted order.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for site := range factories {
		out = append(out, site)
	}
	sort.Strings(out)
	return out
}
