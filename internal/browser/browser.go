// Package browser is the headless-browser boundary. Each topic extractor
// opens one session scoped to its call and must release it on every exit
// path — sessions never outlive a facility or a stage.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	// UserAgent presented on every navigation; a plain Chrome desktop UA
	// avoids the blanket blocks some sites apply to headless signatures.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	navigationTimeout = 30 * time.Second
	// settleDelay gives client-rendered pages a beat to paint before the
	// DOM is read.
	settleDelay = 2 * time.Second
)

// Session owns one headless Chrome process.
type Session struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Open launches headless Chrome and connects to it.
func Open(ctx context.Context) (*Session, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled")

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	return &Session{browser: b, lnch: l}, nil
}

// Close shuts the browser down. Safe to call on every exit path.
func (s *Session) Close() {
	if s.browser != nil {
		s.browser.Close()
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
	}
}

// Visit opens a stealth tab, navigates it to pageURL, and waits for the
// page to load and settle. The caller owns the returned page.
func (s *Session) Visit(ctx context.Context, pageURL string) (*Page, error) {
	p, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: UserAgent}); err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: set user agent: %w", err)
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, navigationTimeout)
	defer cancel()

	if err := p.Context(navCtx).Navigate(pageURL); err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	// A load timeout is not fatal: heavy pages often have a usable DOM
	// long before the load event fires.
	_ = p.Context(navCtx).WaitLoad()

	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		p.Close()
		return nil, ctx.Err()
	}

	return &Page{page: p, url: pageURL}, nil
}

// Page is one rendered tab.
type Page struct {
	page *rod.Page
	url  string
}

// URL returns the address this page was navigated to.
func (p *Page) URL() string { return p.url }

// HTML serialises the rendered DOM.
func (p *Page) HTML(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: read DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Screenshot captures the current viewport as JPEG. Viewport-only keeps the
// vision payload small; full-page captures of long sites blow the model's
// image budget for no extra signal.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	quality := 85
	data, err := p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &quality,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return data, nil
}

// Close closes the tab.
func (p *Page) Close() error {
	if p.page != nil {
		return p.page.Close()
	}
	return nil
}
