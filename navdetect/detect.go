// Package navdetect decides which interactive elements of a document best
// represent the "go to previous content" and "go to next content" intents.
//
// navdetect decides, it does not act. It consumes a host-collected Snapshot
// and returns a Result naming at most one element per intent; activating
// the element, binding keys, and persisting overrides belong to the caller
// (see navbind and navhost).
//
// Detection is best-effort: a heuristic classifier, not a parser. Every
// failure degrades to "no detection this pass".
package navdetect

import (
	"log/slog"

	"github.com/hazyhaar/navkey/navdetect/internal/config"
	"github.com/hazyhaar/navkey/navdetect/internal/exclude"
	"github.com/hazyhaar/navkey/navdetect/internal/pattern"
	"github.com/hazyhaar/navkey/navdetect/internal/signal"
	"github.com/hazyhaar/navkey/navdetect/page"
)

// Detector runs detection passes. Safe for concurrent use: all state is
// immutable after construction, and every pass rebuilds its candidates
// from scratch.
type Detector struct {
	cfg    config.Tunables
	filter *exclude.Filter
	scorer *pattern.Scorer
	logger *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithTunables overrides the default engine constants.
func WithTunables(t Tunables) Option {
	return func(d *Detector) { d.cfg = t }
}

// WithLogger sets the diagnostics logger. Decisions are logged at Debug;
// logging never affects the decision.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		cfg:    config.Defaults(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	d.filter = exclude.New(d.cfg)
	d.scorer = pattern.New(d.cfg)
	return d
}

// candidate is ephemeral per-pass ranking state.
type candidate struct {
	pick    page.Pick
	centerY float64
}

// Detect runs one full detection pass over the snapshot and returns the
// best candidate per intent, either possibly nil. The result wholesale
// replaces any previous one; the detector retains nothing between passes.
func (d *Detector) Detect(snap *page.Snapshot) page.Result {
	var res page.Result
	if snap == nil {
		return res
	}

	// Whole-pass guard: on browser-internal pages everything is chrome.
	if exclude.InternalOrigin(snap.Origin) {
		d.logger.Debug("detect: internal origin, skipping pass", "origin", snap.Origin)
		return res
	}

	var best [2]*candidate // 0: previous, 1: next
	for _, el := range snap.Elements {
		intent, cand := d.scanElement(el, snap.Viewport)
		if cand == nil {
			continue
		}

		// Generous vertical tolerance for ordinary candidates; special
		// contexts (lightbox/episodic) bypass it — those UIs are not
		// always screen-centered.
		if !cand.pick.Special && snap.Viewport.Height > 0 {
			limit := snap.Viewport.Height * d.cfg.CenterTolerance * 2
			dist := cand.centerY - snap.Viewport.Height/2
			if dist < 0 {
				dist = -dist
			}
			if dist > limit {
				d.logger.Debug("detect: candidate outside vertical tolerance",
					"ref", cand.pick.Ref, "intent", intent, "center_y", cand.centerY)
				continue
			}
		}

		slot := 0
		if intent == page.IntentNext {
			slot = 1
		}
		// Strictly greater: ties keep the first encountered (stable).
		if best[slot] == nil || cand.pick.Score > best[slot].pick.Score {
			best[slot] = cand
		}
	}

	if best[0] != nil {
		res.Previous = &best[0].pick
	}
	if best[1] != nil {
		res.Next = &best[1].pick
	}
	return res
}

// scanElement extracts, filters, classifies, and scores one element. A
// panic while handling a malformed element drops that element only; the
// pass continues.
func (d *Detector) scanElement(el page.Element, vp page.Viewport) (intent page.Intent, cand *candidate) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("detect: element dropped", "ref", el.Ref, "panic", r)
			cand = nil
		}
	}()

	sig := signal.Extract(el)

	if v := d.filter.Check(sig.Facts, sig.Text, vp); v.Excluded {
		d.logger.Debug("detect: excluded", "ref", el.Ref, "reasons", v.Reasons)
		return "", nil
	}

	in, method, ok := d.scorer.ClassifyElement(sig)
	if !ok {
		return "", nil
	}

	score, bd := d.scorer.Score(sig, vp, in)
	overlay, episodic := pattern.SpecialContext(sig)

	d.logger.Debug("detect: candidate",
		"ref", el.Ref, "intent", in, "method", method, "score", score, "breakdown", bd)

	return in, &candidate{
		pick: page.Pick{
			Ref:     el.Ref,
			Text:    sig.Text,
			Score:   score,
			Special: overlay || episodic,
		},
		centerY: el.Geometry.CenterY(),
	}
}
