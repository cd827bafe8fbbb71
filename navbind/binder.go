// Package navbind binds detection results to two logical keys and keeps
// them fresh. It is the context object that owns the last result, the
// live bindings, the per-site trained overrides, and the rescan wiring —
// explicit state passed around instead of module-global variables.
//
// navbind chooses *which* element each intent activates; *how* activation
// happens (a DOM click, a location change) belongs to the Host.
package navbind

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/hazyhaar/navkey/idgen"
	"github.com/hazyhaar/navkey/navbind/internal/store"
	"github.com/hazyhaar/navkey/navdetect"
	"github.com/hazyhaar/navkey/navdetect/page"
	"github.com/hazyhaar/navkey/rescan"
)

// Host supplies documents and performs activation. Implementations:
// navhost.Browser (live page), navhost.Static (fetched HTML), or any test
// harness.
type Host interface {
	// Snapshot collects the current interactive elements and viewport.
	Snapshot(ctx context.Context) (*page.Snapshot, error)
	// Resolve turns a trained selector into a live element ref.
	// Empty string when the selector matches nothing right now.
	Resolve(ctx context.Context, selector string) (string, error)
	// Activate invokes the element behind a previously returned ref.
	Activate(ctx context.Context, ref string) error
}

// Source records where a binding came from.
type Source string

const (
	SourceDetected Source = "detected"
	SourceTrained  Source = "trained"
)

// Binding is one live intent → element association.
type Binding struct {
	Intent     page.Intent `json:"intent"`
	Ref        string      `json:"ref"`
	Text       string      `json:"text,omitempty"`
	Score      int         `json:"score,omitempty"`
	Source     Source      `json:"source"`
	OverrideID string      `json:"-"` // set for trained bindings, for use counting
}

// Config for creating a Binder.
type Config struct {
	Host     Host
	Detector *navdetect.Detector
	// StorePath is the trained-override database. Empty disables
	// overrides entirely.
	StorePath string
	Rescan    rescan.Config
	Logger    *slog.Logger
}

// Binder owns one document's binding state.
type Binder struct {
	host   Host
	det    *navdetect.Detector
	store  *store.Store
	sched  *rescan.Scheduler
	logger *slog.Logger

	passID idgen.Generator

	mu       sync.Mutex
	site     string
	last     page.Result
	bindings map[page.Intent]Binding
}

// New creates a Binder. The rescan scheduler is created but not started;
// call Run.
func New(cfg Config) (*Binder, error) {
	if cfg.Host == nil {
		return nil, fmt.Errorf("navbind: nil host")
	}
	if cfg.Detector == nil {
		cfg.Detector = navdetect.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	b := &Binder{
		host:     cfg.Host,
		det:      cfg.Detector,
		logger:   cfg.Logger,
		passID:   idgen.Prefixed("scan_", idgen.Default),
		bindings: make(map[page.Intent]Binding),
	}

	if cfg.StorePath != "" {
		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("navbind: open override store: %w", err)
		}
		b.store = st
	}

	b.sched = rescan.New(cfg.Rescan, rescan.Hooks{
		Scan:    b.scan,
		Cleanup: b.unbind,
	}, cfg.Logger)

	return b, nil
}

// Run performs the initial detect-and-bind pass (with retries) and serves
// change events until ctx is cancelled. Blocks.
func (b *Binder) Run(ctx context.Context) {
	b.sched.Run(ctx)
}

// Notify feeds a document change event into the rescan machine.
func (b *Binder) Notify(ev rescan.Event) {
	b.sched.Notify(ev)
}

// Close releases the override store.
func (b *Binder) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

// scan is the full detect-and-bind pass: snapshot, trained overrides
// first, fresh detection for whatever is not trained, then rebind.
func (b *Binder) scan(ctx context.Context) error {
	passID := b.passID()

	snap, err := b.host.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("navbind: snapshot: %w", err)
	}

	site := siteOf(snap.URL)
	bindings := make(map[page.Intent]Binding)

	// Trained overrides beat detection. A selector that no longer
	// resolves falls back to detection for that intent.
	if b.store != nil && site != "" {
		prev, next, err := b.store.GetSite(ctx, site)
		if err != nil {
			b.logger.Warn("navbind: override lookup failed", "site", site, "error", err)
		} else {
			for _, o := range []*store.Override{prev, next} {
				if o == nil {
					continue
				}
				ref, err := b.host.Resolve(ctx, o.Selector)
				if err != nil || ref == "" {
					b.logger.Debug("navbind: trained selector unresolved",
						"site", site, "intent", o.Intent, "selector", o.Selector)
					continue
				}
				bindings[o.Intent] = Binding{
					Intent:     o.Intent,
					Ref:        ref,
					Text:       o.Text,
					Source:     SourceTrained,
					OverrideID: o.ID,
				}
			}
		}
	}

	res := b.det.Detect(snap)
	for _, intent := range []page.Intent{page.IntentPrevious, page.IntentNext} {
		if _, trained := bindings[intent]; trained {
			continue
		}
		if pick := res.ForIntent(intent); pick != nil {
			bindings[intent] = Binding{
				Intent: intent,
				Ref:    pick.Ref,
				Text:   pick.Text,
				Score:  pick.Score,
				Source: SourceDetected,
			}
		}
	}

	b.mu.Lock()
	b.site = site
	b.last = res
	b.bindings = bindings
	b.mu.Unlock()

	b.logger.Info("navbind: rebound",
		"pass", passID, "site", site, "bindings", len(bindings),
		"previous", res.Previous != nil, "next", res.Next != nil)
	return nil
}

// unbind clears prior bindings before a pass.
func (b *Binder) unbind() {
	b.mu.Lock()
	b.bindings = make(map[page.Intent]Binding)
	b.mu.Unlock()
}

// Activate invokes the element currently bound to the intent.
func (b *Binder) Activate(ctx context.Context, intent page.Intent) error {
	b.mu.Lock()
	bd, ok := b.bindings[intent]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("navbind: no binding for intent %q", intent)
	}

	if err := b.host.Activate(ctx, bd.Ref); err != nil {
		return fmt.Errorf("navbind: activate %q: %w", intent, err)
	}

	if b.store != nil && bd.OverrideID != "" {
		if err := b.store.RecordUse(ctx, bd.OverrideID); err != nil {
			b.logger.Warn("navbind: record use failed", "error", err)
		}
	}
	return nil
}

// Train stores a manual per-site override for the intent and rebinds.
func (b *Binder) Train(ctx context.Context, intent page.Intent, selector, text string) error {
	if b.store == nil {
		return fmt.Errorf("navbind: override store disabled")
	}
	b.mu.Lock()
	site := b.site
	b.mu.Unlock()
	if site == "" {
		return fmt.Errorf("navbind: no current site")
	}

	err := b.store.Put(ctx, &store.Override{
		Site:     site,
		Intent:   intent,
		Selector: selector,
		Text:     text,
	})
	if err != nil {
		return fmt.Errorf("navbind: train: %w", err)
	}
	return b.scan(ctx)
}

// Untrain removes the per-site override for the intent and rebinds.
func (b *Binder) Untrain(ctx context.Context, intent page.Intent) error {
	if b.store == nil {
		return fmt.Errorf("navbind: override store disabled")
	}
	b.mu.Lock()
	site := b.site
	b.mu.Unlock()
	if site == "" {
		return fmt.Errorf("navbind: no current site")
	}

	if err := b.store.Delete(ctx, site, intent); err != nil {
		return fmt.Errorf("navbind: untrain: %w", err)
	}
	return b.scan(ctx)
}

// Result returns the last detection result.
func (b *Binder) Result() page.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Bindings returns the live bindings, previous first.
func (b *Binder) Bindings() []Binding {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Binding, 0, 2)
	for _, intent := range []page.Intent{page.IntentPrevious, page.IntentNext} {
		if bd, ok := b.bindings[intent]; ok {
			out = append(out, bd)
		}
	}
	return out
}

// Site returns the current site identity (URL host).
func (b *Binder) Site() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.site
}

// State returns the rescan machine state.
func (b *Binder) State() rescan.State { return b.sched.State() }

// Scans returns the number of completed passes.
func (b *Binder) Scans() int64 { return b.sched.Scans() }

// siteOf derives site identity from a URL: the host, ports stripped.
func siteOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
