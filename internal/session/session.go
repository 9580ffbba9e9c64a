// Package session owns one persistent HTTP session per site key: cookies,
// proxy, default headers, timeout and politeness limits. Sessions are
// process-wide singletons, so a proxy or cookie update affects every
// outstanding and future crawl for that site immediately.
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config controls session defaults applied to every site.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
	// Proxies maps site keys to proxy URLs applied at creation time.
	Proxies map[string]string
}

// Manager hands out per-site sessions, creating them on first use.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewManager constructs a Manager.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) comicdl/1.0"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Session returns the site's session, creating a default-configured one on
// first use. Idempotent.
func (m *Manager) Session(site string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[site]; ok {
		return s
	}
	s := newSession(site, m.cfg, m.logger.With(zap.String("site", site)))
	if proxy, ok := m.cfg.Proxies[site]; ok && proxy != "" {
		if err := s.setProxy(proxy); err != nil {
			m.logger.Warn("configured proxy rejected",
				zap.String("site", site), zap.Error(err))
		}
	}
	m.sessions[site] = s
	return s
}

// SetProxy points the site's live transport at proxy; an empty string
// clears it. Last writer wins, no per-request isolation.
func (m *Manager) SetProxy(site, proxy string) error {
	return m.Session(site).setProxy(proxy)
}

// Proxy reports the site's current proxy URL, empty when direct.
func (m *Manager) Proxy(site string) string {
	return m.Session(site).proxyURL()
}

// UpdateCookies merges cookies into the site's jar.
func (m *Manager) UpdateCookies(site string, cookies []*http.Cookie) {
	m.Session(site).jar.update(cookies)
}

// Cookies lists every cookie currently held for the site.
func (m *Manager) Cookies(site string) []*http.Cookie {
	return m.Session(site).jar.all()
}

// ExportCookies serializes the site's cookies to sink as JSON.
func (m *Manager) ExportCookies(site string, sink io.Writer) error {
	cookies := m.Session(site).jar.export()
	if err := json.NewEncoder(sink).Encode(cookies); err != nil {
		return fmt.Errorf("export cookies for %s: %w", site, err)
	}
	return nil
}

// LoadCookies restores cookies previously produced by ExportCookies.
func (m *Manager) LoadCookies(site string, source io.Reader) error {
	var cookies []exportedCookie
	if err := json.NewDecoder(source).Decode(&cookies); err != nil {
		return fmt.Errorf("load cookies for %s: %w", site, err)
	}
	m.Session(site).jar.restore(cookies)
	return nil
}

// Session is one site's shared transport state. All crawler instances for
// the same site use the same session, by design.
type Session struct {
	site      string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	jar       *recordingJar
	logger    *zap.Logger

	mu        sync.Mutex
	proxy     string
	transport *http.Transport
}

func newSession(site string, cfg Config, logger *zap.Logger) *Session {
	limit := rate.Limit(cfg.RequestsPerSec)
	if cfg.RequestsPerSec <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Session{
		site:      site,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		limiter:   rate.NewLimiter(limit, burst),
		jar:       newRecordingJar(),
		logger:    logger,
		transport: &http.Transport{},
	}
}

// Site reports the session's site key.
func (s *Session) Site() string { return s.site }

func (s *Session) setProxy(proxy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if proxy == "" {
		s.proxy = ""
		s.transport = &http.Transport{}
		return nil
	}
	u, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("parse proxy url: %w", err)
	}
	s.proxy = proxy
	s.transport = &http.Transport{Proxy: http.ProxyURL(u)}
	return nil
}

func (s *Session) proxyURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proxy
}

func (s *Session) roundTripper() http.RoundTripper {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}
