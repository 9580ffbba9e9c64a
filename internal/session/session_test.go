package session

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/comic"
)

func newTestManager() *Manager {
	return NewManager(Config{Timeout: 5 * time.Second}, zap.NewNop())
}

func TestManager_SessionIsSingletonPerSite(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	require.Same(t, m.Session("qq"), m.Session("qq"))
	require.NotSame(t, m.Session("qq"), m.Session("u17"))
}

func TestManager_ProxyLifecycle(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	require.NoError(t, m.SetProxy("qq", "http://127.0.0.1:8080"))
	require.Equal(t, "http://127.0.0.1:8080", m.Proxy("qq"))

	require.NoError(t, m.SetProxy("qq", ""))
	require.Empty(t, m.Proxy("qq"))

	require.Error(t, m.SetProxy("qq", "http://bad url with spaces"))
}

func TestManager_CookieExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	m.UpdateCookies("qq", []*http.Cookie{
		{Name: "skey", Value: "abc", Domain: "ac.qq.com", Path: "/"},
		{Name: "uin", Value: "12345", Domain: "ac.qq.com", Path: "/"},
	})

	var blob bytes.Buffer
	require.NoError(t, m.ExportCookies("qq", &blob))

	restored := newTestManager()
	require.NoError(t, restored.LoadCookies("qq", &blob))

	cookies := restored.Cookies("qq")
	require.Len(t, cookies, 2)
	names := map[string]string{}
	for _, c := range cookies {
		names[c.Name] = c.Value
	}
	require.Equal(t, map[string]string{"skey": "abc", "uin": "12345"}, names)
}

func TestSession_FetchSendsCookiesAndHeaders(t *testing.T) {
	t.Parallel()

	var gotCookie, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("token"); err == nil {
			gotCookie = c.Value
		}
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	m := newTestManager()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	m.UpdateCookies("qq", []*http.Cookie{{Name: "token", Value: "sesame", Domain: u.Hostname(), Path: "/"}})

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	body, err := m.Session("qq").Fetch(context.Background(), srv.URL, headers)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), body)
	require.Equal(t, "sesame", gotCookie)
	require.Equal(t, "application/json", gotAccept)
}

func TestSession_FetchWrapsBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	m := newTestManager()
	_, err := m.Session("qq").Fetch(context.Background(), srv.URL, nil)

	var urlErr *comic.URLError
	require.True(t, errors.As(err, &urlErr))
	require.Equal(t, http.StatusNotFound, urlErr.StatusCode)
}

func TestSession_FetchWrapsTransportFailure(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	_, err := m.Session("qq").Fetch(context.Background(), "http://127.0.0.1:1", nil)

	var urlErr *comic.URLError
	require.True(t, errors.As(err, &urlErr))
}

func TestSession_ServerSetCookiePersistsAcrossFetches(t *testing.T) {
	t.Parallel()

	var second string
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s1", Path: "/"})
		}
		if c, err := r.Cookie("sid"); err == nil {
			second = c.Value
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := newTestManager().Session("qq")
	_, err := s.Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	_, err = s.Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.Equal(t, "s1", second)
}
