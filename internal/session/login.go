package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// LoginFunc drives a browser-session login for a site. Manager.BrowserLogin
// is the production implementation; tests substitute fakes.
type LoginFunc func(ctx context.Context, site string, opts LoginOptions) error

// LoginOptions configure a browser-session login.
type LoginOptions struct {
	// LoginURL is the page opened in the browser.
	LoginURL string
	// WaitCookie is the cookie name whose appearance signals a completed
	// login (typically the site's session token).
	WaitCookie string
	// Timeout bounds the whole login flow. Defaults to 3 minutes, long
	// enough for a human to type credentials in interactive mode.
	Timeout time.Duration
	// Headless runs the browser without a window; interactive logins
	// need it off.
	Headless bool
}

// BrowserLogin opens a browser session on the site's login page, waits for
// the login to complete, and persists the resulting cookies into the
// site's session so subsequent crawls reuse them.
func (m *Manager) BrowserLogin(ctx context.Context, site string, opts LoginOptions) error {
	if opts.LoginURL == "" {
		return fmt.Errorf("login url required for site %s", site)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Minute
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, opts.Timeout)
	defer cancel()

	var captured []*http.Cookie
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(opts.LoginURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := waitForCookie(ctx, opts.WaitCookie)
			if err != nil {
				return err
			}
			captured = cookies
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("browser login for %s: %w", site, err)
	}

	m.UpdateCookies(site, captured)
	m.logger.Info("browser login captured cookies",
		zap.String("site", site), zap.Int("cookies", len(captured)))
	return nil
}

// waitForCookie polls the browser's cookie store until the marker cookie
// appears or the context expires. An empty marker returns the store as
// soon as it is non-empty.
func waitForCookie(ctx context.Context, name string) ([]*http.Cookie, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("read browser cookies: %w", err)
		}
		if found := convertCookies(cookies, name); found != nil {
			return found, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("login wait: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func convertCookies(cookies []*network.Cookie, marker string) []*http.Cookie {
	matched := marker == ""
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == marker {
			matched = true
		}
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		})
	}
	if !matched || len(out) == 0 {
		return nil
	}
	return out
}
