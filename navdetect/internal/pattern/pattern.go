// Package pattern classifies normalized text signals into navigation
// intents and ranks classified elements.
//
// Classification is layered: veto patterns disqualify outright, explicit
// rel/pagination markers override text scoring, and the remaining case is
// decided by weighted regex accumulation against both intents with
// direction-agnostic penalties. A tie or a weak winner classifies as
// nothing — false negatives are cheaper than wrong jumps.
package pattern

import (
	"strings"

	"github.com/hazyhaar/navkey/navdetect/internal/config"
	"github.com/hazyhaar/navkey/navdetect/internal/signal"
	"github.com/hazyhaar/navkey/navdetect/page"
)

// Method records how a classification was reached, for diagnostics.
type Method string

const (
	MethodVeto       Method = "veto"
	MethodRel        Method = "rel"
	MethodPagination Method = "pagination-class"
	MethodText       Method = "text"
	MethodNone       Method = "none"
)

// Delta is one scored component in a breakdown.
type Delta struct {
	Tag   string `json:"tag"`
	Value int    `json:"value"`
}

// Breakdown is the additive trace of one score. Observational only.
type Breakdown []Delta

// Total sums the breakdown.
func (b Breakdown) Total() int {
	var n int
	for _, d := range b {
		n += d.Value
	}
	return n
}

// Scorer evaluates text signals against the pattern tables.
type Scorer struct {
	cfg config.Tunables
}

// New creates a scorer with the given tunables.
func New(cfg config.Tunables) *Scorer {
	return &Scorer{cfg: cfg}
}

// Vetoed reports whether any veto pattern matches the text.
func (s *Scorer) Vetoed(text string) bool {
	for _, re := range vetoes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// patternScore accumulates rule weights for one intent, with a small
// per-extra-match bonus rewarding convergent signals.
func (s *Scorer) patternScore(rules []Rule, text string) (int, Breakdown) {
	var bd Breakdown
	matches := 0
	for _, r := range rules {
		if r.Re.MatchString(text) {
			bd = append(bd, Delta{Tag: r.Tag, Value: r.Weight})
			matches++
		}
	}
	if matches > 1 {
		bd = append(bd, Delta{Tag: "convergence", Value: matches * s.cfg.MultiMatchBonus})
	}
	return bd.Total(), bd
}

// penaltyScore sums all matching direction-agnostic penalties.
func (s *Scorer) penaltyScore(text string) (int, Breakdown) {
	var bd Breakdown
	for _, p := range penalties {
		if p.Re.MatchString(text) {
			bd = append(bd, Delta{Tag: p.Tag, Value: p.Penalty})
		}
	}
	return bd.Total(), bd
}

// Classify decides the intent of a text signal, or none. Veto wins over
// everything; otherwise the intent with the greater final score is chosen
// iff it reaches the minimum threshold. Ties classify as none.
func (s *Scorer) Classify(text string) (page.Intent, bool) {
	if s.Vetoed(text) {
		return "", false
	}

	next, _ := s.patternScore(nextRules, text)
	prev, _ := s.patternScore(prevRules, text)
	penalty, _ := s.penaltyScore(text)

	finalNext := next + penalty
	finalPrev := prev + penalty

	switch {
	case finalNext >= s.cfg.MinIntentScore && finalNext > finalPrev:
		return page.IntentNext, true
	case finalPrev >= s.cfg.MinIntentScore && finalPrev > finalNext:
		return page.IntentPrevious, true
	}
	return "", false
}

// ClassifyElement classifies a full element signal: veto first, then the
// deterministic rel/pagination-class overrides, then text classification.
func (s *Scorer) ClassifyElement(sig signal.Signal) (page.Intent, Method, bool) {
	if s.Vetoed(sig.Text) {
		return "", MethodVeto, false
	}

	switch sig.Facts.Rel {
	case "next":
		return page.IntentNext, MethodRel, true
	case "prev", "previous":
		return page.IntentPrevious, MethodRel, true
	}

	if in, ok := paginationClassIntent(sig.Facts.Tokens); ok {
		return in, MethodPagination, true
	}

	if in, ok := s.Classify(sig.Text); ok {
		return in, MethodText, true
	}
	return "", MethodNone, false
}

// paginationClassIntent derives an intent from a pagination/pager marker
// combined with a directional token. Both halves may live in one token
// ("pagination-next") or in separate tokens of the same element.
func paginationClassIntent(tokens []string) (page.Intent, bool) {
	joined := strings.Join(tokens, " ")
	if !paginationMarker.MatchString(joined) {
		return "", false
	}
	isNext := directionalNext.MatchString(joined)
	isPrev := directionalPrev.MatchString(joined)
	switch {
	case isNext && !isPrev:
		return page.IntentNext, true
	case isPrev && !isNext:
		return page.IntentPrevious, true
	}
	return "", false
}

// SpecialContext reports whether the element belongs to an overlay/lightbox
// or an episodic/paginated-media UI, via ancestor and icon tokens. Such
// contexts are allowed to match regardless of vertical position.
func SpecialContext(sig signal.Signal) (overlay, episodic bool) {
	probe := func(tok string) {
		lt := strings.ToLower(tok)
		if overlayContext.MatchString(lt) {
			overlay = true
		}
		if episodicContext.MatchString(lt) {
			episodic = true
		}
	}
	for _, anc := range sig.Facts.Ancestors {
		probe(anc.ID)
		probe(anc.Role)
		for _, c := range anc.Classes {
			probe(c)
		}
	}
	for _, tok := range sig.Facts.Tokens {
		probe(tok)
	}
	return overlay, episodic
}

// Score computes the full ranking score of a classified element for the
// given intent. Used only to rank candidates after classification; the
// absolute value is meaningless outside one pass.
func (s *Scorer) Score(sig signal.Signal, vp page.Viewport, intent page.Intent) (int, Breakdown) {
	if s.Vetoed(sig.Text) {
		return s.cfg.VetoScore, Breakdown{{Tag: "veto", Value: s.cfg.VetoScore}}
	}

	var bd Breakdown

	rules := nextRules
	if intent == page.IntentPrevious {
		rules = prevRules
	}
	_, patternBD := s.patternScore(rules, sig.Text)
	bd = append(bd, patternBD...)
	_, penaltyBD := s.penaltyScore(sig.Text)
	bd = append(bd, penaltyBD...)

	// Explicit markers.
	if sig.Facts.Rel == "next" || sig.Facts.Rel == "prev" || sig.Facts.Rel == "previous" {
		bd = append(bd, Delta{Tag: "rel", Value: s.cfg.RelBonus})
	}
	joined := strings.Join(sig.Facts.Tokens, " ")
	if paginationMarker.MatchString(joined) {
		bd = append(bd, Delta{Tag: "pagination-class", Value: s.cfg.PaginationBonus})
	} else if navClassMarker.MatchString(joined) {
		bd = append(bd, Delta{Tag: "nav-class", Value: s.cfg.NavClassBonus})
	}

	// Vertical proximity to viewport center: triangular falloff reaching
	// zero at CenterTolerance of the viewport height.
	if vp.Height > 0 {
		dist := sig.Facts.Geometry.CenterY() - vp.Height/2
		if dist < 0 {
			dist = -dist
		}
		span := vp.Height * s.cfg.CenterTolerance
		if span > 0 && dist < span {
			prox := int(float64(s.cfg.ProximityMax) * (1 - dist/span))
			if prox > 0 {
				bd = append(bd, Delta{Tag: "proximity", Value: prox})
			}
		}
	}

	// Size adjustment.
	area := sig.Facts.Geometry.Area()
	switch {
	case area < 16:
		bd = append(bd, Delta{Tag: "tiny-area", Value: s.cfg.TinyAreaPenalty})
	case area > 10_000:
		bd = append(bd, Delta{Tag: "large-area", Value: s.cfg.LargeAreaPenalty})
	}

	// Text length adjustment.
	switch n := len([]rune(sig.Text)); {
	case n == 0:
		bd = append(bd, Delta{Tag: "empty-text", Value: s.cfg.EmptyTextPenalty})
	case n == 1:
		bd = append(bd, Delta{Tag: "single-char", Value: s.cfg.SingleCharBonus})
	case n > s.cfg.LongTextChars:
		bd = append(bd, Delta{Tag: "long-text", Value: s.cfg.LongTextPenalty})
	}

	// Tag kind.
	switch sig.Facts.Kind {
	case page.KindLink:
		bd = append(bd, Delta{Tag: "anchor", Value: s.cfg.AnchorBonus})
	case page.KindButton:
		bd = append(bd, Delta{Tag: "button", Value: s.cfg.ButtonBonus})
	}

	// Traditional viewport half for the intent.
	if vp.Width > 0 {
		cx := sig.Facts.Geometry.CenterX()
		switch intent {
		case page.IntentPrevious:
			if cx < vp.Width*s.cfg.PrevHalfRight {
				bd = append(bd, Delta{Tag: "traditional-half", Value: s.cfg.HalfBonus})
			}
		case page.IntentNext:
			if cx > vp.Width*s.cfg.NextHalfLeft {
				bd = append(bd, Delta{Tag: "traditional-half", Value: s.cfg.HalfBonus})
			}
		}
	}

	// Special contexts: episodic wins when both apply.
	overlay, episodic := SpecialContext(sig)
	switch {
	case episodic:
		bd = append(bd, Delta{Tag: "episodic-context", Value: s.cfg.EpisodicBonus})
	case overlay:
		bd = append(bd, Delta{Tag: "overlay-context", Value: s.cfg.OverlayBonus})
	}

	return bd.Total(), bd
}
