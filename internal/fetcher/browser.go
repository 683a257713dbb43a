package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/storetrends/internal/config"
	"github.com/IshaanNene/storetrends/internal/types"
)

// BrowserFetcher implements Fetcher using a headless Chromium via Rod.
// Each Fetch opens a fresh stealth page so no state leaks between regions.
type BrowserFetcher struct {
	browser *rod.Browser
	cfg     *config.FetcherConfig
	logger  *slog.Logger
}

// NewBrowserFetcher launches a headless browser and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	controlURL, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf := &BrowserFetcher{
		browser: browser,
		cfg:     &cfg.Fetcher,
		logger:  logger.With("component", "browser_fetcher"),
	}
	bf.logger.Info("browser fetcher ready", "settle", cfg.Fetcher.BrowserSettle)
	return bf, nil
}

// Fetch navigates to the request URL once and returns the rendered HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	page, err := stealth.Page(bf.browser)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: fmt.Errorf("stealth page: %w", err)}
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(bf.cfg.RequestTimeout)

	ua := req.Headers.Get("User-Agent")
	if ua == "" {
		ua = bf.cfg.UserAgent
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: req.Headers.Get("Accept-Language"),
	}); err != nil {
		bf.logger.Warn("failed to set user agent", "error", err)
	}

	// Chromium manages these itself and rejects overrides.
	skip := map[string]bool{"User-Agent": true, "Accept-Encoding": true, "Connection": true}
	headers := make([]string, 0, len(req.Headers)*2)
	for k, vals := range req.Headers {
		if skip[k] {
			continue
		}
		for _, v := range vals {
			headers = append(headers, k, v)
		}
	}
	if len(headers) > 0 {
		if _, err := page.SetExtraHeaders(headers); err != nil {
			bf.logger.Warn("failed to set extra headers", "error", err)
		}
	}

	status := 0
	waitDocument := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			status = e.Response.Status
			return true
		}
		return false
	})

	if err := page.Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	waitDocument()

	if err := page.WaitLoad(); err != nil {
		bf.logger.Warn("page load timeout, continuing", "url", req.URLString(), "error", err)
	}
	if bf.cfg.BrowserSettle > 0 {
		if err := page.WaitStable(bf.cfg.BrowserSettle); err != nil {
			bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
		}
	}

	if status != 0 && (status < 200 || status >= 300) {
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: status,
			Err:        fmt.Errorf("HTTP error! status: %d", status),
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), StatusCode: status, Err: err}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}
	if status == 0 {
		status = 200 // document event not observed; the page still rendered
	}

	duration := time.Since(start)
	resp := types.NewResponse(req, bf.Type(), status, []byte(html), duration)
	resp.FinalURL = finalURL

	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"region", req.Region,
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return resp, nil
}

// Close shuts down the browser.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
