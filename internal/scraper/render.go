package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/playwright-community/playwright-go"
)

const renderTimeout = 45 * time.Second

// ChromeRenderer drives a headless Chrome per page through chromedp.
type ChromeRenderer struct{}

func (ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	renderCtx, cancelTimeout := context.WithTimeout(browserCtx, renderTimeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp render %s: %w", url, err)
	}
	return html, nil
}

// PlaywrightRenderer keeps one Chromium running and opens a page per call.
// The browser starts on first use.
type PlaywrightRenderer struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

func (r *PlaywrightRenderer) start() (playwright.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	r.pw, r.browser = pw, browser
	return browser, nil
}

func (r *PlaywrightRenderer) Render(ctx context.Context, url string) (string, error) {
	browser, err := r.start()
	if err != nil {
		return "", err
	}
	page, err := browser.NewPage(playwright.BrowserNewPageOptions{UserAgent: playwright.String(userAgent)})
	if err != nil {
		return "", fmt.Errorf("new page: %w", err)
	}
	defer page.Close()

	timeout := float64(renderTimeout.Milliseconds())
	if deadline, ok := ctx.Deadline(); ok {
		timeout = float64(time.Until(deadline).Milliseconds())
	}
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeout),
	}); err != nil {
		return "", fmt.Errorf("playwright render %s: %w", url, err)
	}
	return page.Content()
}

// Close shuts the browser down if it was started.
func (r *PlaywrightRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	r.browser.Close()
	err := r.pw.Stop()
	r.pw, r.browser = nil, nil
	return err
}

// NewRenderer picks a renderer by backend name. "http" and "" mean none.
func NewRenderer(backend string) (Renderer, error) {
	switch backend {
	case "", "http":
		return nil, nil
	case "chromedp":
		return ChromeRenderer{}, nil
	case "playwright":
		return &PlaywrightRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown fetch backend %q", backend)
}
