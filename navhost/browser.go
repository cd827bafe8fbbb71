// Package navhost provides document hosts for the binder: a live Chrome
// page driven over CDP, and a static HTML fetcher for server-rendered
// sites. Both produce page.Snapshot values and perform activation; the
// detection engine never talks to a document directly.
package navhost

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/navkey/navdetect/page"
	"github.com/hazyhaar/navkey/rescan"
)

//go:embed collect.js
var collectJS string

const bindingName = "__navkey_binding"

// BrowserConfig configures the live browser host.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headful disables headless mode (debugging).
	Headful bool

	// NavigateTimeout bounds initial navigation. Default: 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser hosts one live page. It implements the binder's Host interface
// and forwards document change events to a registered listener.
type Browser struct {
	cfg     BrowserConfig
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
	logger  *slog.Logger
}

// OpenBrowser launches (or connects to) Chrome, opens the URL on a
// stealth page, and injects the collector.
func OpenBrowser(ctx context.Context, pageURL string, cfg BrowserConfig) (*Browser, error) {
	cfg.defaults()
	h := &Browser{cfg: cfg, logger: cfg.Logger}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(!cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("navhost: launch chrome: %w", err)
		}
		wsURL = u
		h.lnch = l
		h.logger.Info("navhost: launched local chrome", "url", wsURL)
	} else {
		h.logger.Info("navhost: connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		h.close()
		return nil, fmt.Errorf("navhost: connect: %w", err)
	}
	h.browser = b

	p, err := stealth.Page(b)
	if err != nil {
		h.close()
		return nil, fmt.Errorf("navhost: create page: %w", err)
	}
	h.page = p

	// Re-inject on every new document so full navigations keep the
	// collector and its MutationObserver alive.
	if _, err := p.EvalOnNewDocument(collectJS); err != nil {
		h.logger.Warn("navhost: persistent injection failed", "error", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigateTimeout)
	defer cancel()
	if err := p.Context(navCtx).Navigate(pageURL); err != nil {
		h.close()
		return nil, fmt.Errorf("navhost: navigate %s: %w", pageURL, err)
	}
	if err := p.Context(navCtx).WaitLoad(); err != nil {
		h.logger.Warn("navhost: wait load timeout", "url", pageURL, "error", err)
	}

	// The first document may predate EvalOnNewDocument; the script guard
	// makes double injection harmless.
	if _, err := p.Eval(collectJS); err != nil {
		h.close()
		return nil, fmt.Errorf("navhost: inject collector: %w", err)
	}

	return h, nil
}

// Watch registers the change listener and starts forwarding page events.
// Call once, before the binder starts.
func (h *Browser) Watch(ctx context.Context, notify func(rescan.Event)) error {
	err := proto.RuntimeAddBinding{Name: bindingName}.Call(h.page)
	if err != nil {
		return fmt.Errorf("navhost: add binding: %w", err)
	}

	go h.listenBinding(ctx, notify)
	go h.listenNavigation(ctx, notify)
	return nil
}

// listenBinding receives mutation/SPA-navigation batches pushed by the
// injected collector.
func (h *Browser) listenBinding(ctx context.Context, notify func(rescan.Event)) {
	h.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		var batch []struct {
			Navigation bool     `json:"navigation"`
			Op         string   `json:"op"`
			Attr       string   `json:"attr"`
			Tokens     []string `json:"tokens"`
		}
		if err := json.Unmarshal([]byte(e.Payload), &batch); err != nil {
			h.logger.Warn("navhost: parse binding payload", "error", err)
			return
		}

		for _, raw := range batch {
			if raw.Navigation {
				notify(rescan.NavigationEvent())
				continue
			}
			notify(rescan.MutationEvent(rescan.Op(raw.Op), raw.Attr, raw.Tokens))
		}
	})()
}

// listenNavigation forwards full (non-SPA) navigations, which replace the
// document without going through the history hooks.
func (h *Browser) listenNavigation(ctx context.Context, notify func(rescan.Event)) {
	h.page.Context(ctx).EachEvent(func(e *proto.PageFrameNavigated) {
		if e.Frame.ParentID != "" {
			return // subframe
		}
		h.logger.Debug("navhost: page navigated", "url", e.Frame.URL)
		notify(rescan.NavigationEvent())
	})()
}

// Snapshot collects the page's interactive elements.
func (h *Browser) Snapshot(ctx context.Context) (*page.Snapshot, error) {
	res, err := h.page.Context(ctx).Eval(`() => window.__navkey.collect()`)
	if err != nil {
		return nil, fmt.Errorf("navhost: collect: %w", err)
	}
	snap, err := page.UnmarshalSnapshot([]byte(res.Value.Str()))
	if err != nil {
		return nil, fmt.Errorf("navhost: parse snapshot: %w", err)
	}
	return snap, nil
}

// Resolve maps a CSS selector to a live element ref. Empty when the
// selector matches nothing.
func (h *Browser) Resolve(ctx context.Context, selector string) (string, error) {
	res, err := h.page.Context(ctx).Eval(`(sel) => window.__navkey.resolve(sel)`, selector)
	if err != nil {
		return "", fmt.Errorf("navhost: resolve: %w", err)
	}
	return res.Value.Str(), nil
}

// Activate clicks the element behind a ref.
func (h *Browser) Activate(ctx context.Context, ref string) error {
	res, err := h.page.Context(ctx).Eval(`(ref) => window.__navkey.activate(ref)`, ref)
	if err != nil {
		return fmt.Errorf("navhost: activate: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("navhost: ref %q is stale", ref)
	}
	return nil
}

// URL returns the page's current location.
func (h *Browser) URL() string {
	info, err := h.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Close shuts the page and, when locally launched, Chrome itself.
func (h *Browser) Close() error {
	return h.close()
}

func (h *Browser) close() error {
	if h.page != nil {
		h.page.Close()
		h.page = nil
	}
	if h.browser != nil {
		h.browser.Close()
		h.browser = nil
	}
	if h.lnch != nil {
		h.lnch.Cleanup()
		h.lnch = nil
	}
	return nil
}
