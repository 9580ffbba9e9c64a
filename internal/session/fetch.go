package session

import (
	"context"
	"net/http"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/comic"
)

// Fetch executes a single GET through the site's session: shared cookie
// jar, live proxy, default headers and the politeness limiter. Any
// transport failure or non-2xx status wraps into *comic.URLError.
func (s *Session) Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, comic.NewURLError(rawURL, err)
	}

	var (
		body     []byte
		status   int
		fetchErr error
	)

	collector := s.newCollector()
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", s.userAgent)
		r.Headers.Set("Referer", rawURL)
		for name, values := range headers {
			for _, v := range values {
				r.Headers.Set(name, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := collector.Visit(rawURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	collector.Wait()

	switch {
	case fetchErr != nil && status >= http.StatusBadRequest:
		return nil, comic.NewStatusError(rawURL, status)
	case fetchErr != nil:
		return nil, comic.NewURLError(rawURL, fetchErr)
	case status >= http.StatusBadRequest:
		return nil, comic.NewStatusError(rawURL, status)
	}

	s.logger.Debug("fetched", zap.String("url", rawURL), zap.Int("status", status))
	return body, nil
}

// newCollector builds a single-shot collector bound to this session's
// jar and transport. Colly caches visited URLs per collector, so each
// fetch gets a fresh one; the expensive state (cookies, transport) lives
// on the session.
func (s *Session) newCollector() *colly.Collector {
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.UserAgent = s.userAgent
	c.SetRequestTimeout(s.timeout)
	c.SetCookieJar(s.jar)
	c.WithTransport(s.roundTripper())
	return c
}
