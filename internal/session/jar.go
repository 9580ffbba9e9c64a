package session

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// exportedCookie is the persistence shape for one cookie.
type exportedCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
	Secure bool   `json:"secure"`
}

// recordingJar wraps a cookiejar.Jar and mirrors every cookie that passes
// through SetCookies. The standard jar cannot enumerate its contents, and
// export/import needs enumeration.
type recordingJar struct {
	mu    sync.Mutex
	inner http.CookieJar
	seen  map[string]exportedCookie
}

func newRecordingJar() *recordingJar {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		// cookiejar.New never fails with valid options.
		panic(err)
	}
	return &recordingJar{
		inner: inner,
		seen:  make(map[string]exportedCookie),
	}
}

// SetCookies implements http.CookieJar.
func (j *recordingJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = u.Hostname()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		j.seen[domain+"\x00"+path+"\x00"+c.Name] = exportedCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: domain,
			Path:   path,
			Secure: c.Secure,
		}
	}
	j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (j *recordingJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

func (j *recordingJar) update(cookies []*http.Cookie) {
	byDomain := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		byDomain[c.Domain] = append(byDomain[c.Domain], c)
	}
	for domain, group := range byDomain {
		u := &url.URL{Scheme: "https", Host: domain}
		j.SetCookies(u, group)
	}
}

func (j *recordingJar) all() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*http.Cookie, 0, len(j.seen))
	for _, c := range j.seen {
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		})
	}
	return out
}

func (j *recordingJar) export() []exportedCookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]exportedCookie, 0, len(j.seen))
	for _, c := range j.seen {
		out = append(out, c)
	}
	return out
}

func (j *recordingJar) restore(cookies []exportedCookie) {
	for _, c := range cookies {
		u := &url.URL{Scheme: "https", Host: c.Domain}
		j.SetCookies(u, []*http.Cookie{{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		}})
	}
}
