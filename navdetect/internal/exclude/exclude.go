// Package exclude decides whether an element belongs to browser chrome,
// an extension, or other non-content UI, and must never be offered as a
// navigation target.
//
// Six independent checks each produce a nullable reason. The verdict is
// "excluded" iff at least one reason is non-nil; all reasons are collected
// so diagnostics can show every ground for the decision. The checks have
// no ordering dependency.
package exclude

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/navkey/navdetect/internal/config"
	"github.com/hazyhaar/navkey/navdetect/internal/signal"
	"github.com/hazyhaar/navkey/navdetect/page"
)

// Verdict is the filter's per-element output.
type Verdict struct {
	Excluded bool
	Reasons  []string
}

// chromeTokens mark classes/ids/data attributes owned by the browser or
// extension surfaces rather than page content.
var chromeTokens = []string{"chrome-", "browser-", "extension-", "toolbar-"}

// browserLabels in aria-label/title/alt indicate native history controls.
var browserLabels = []string{"back", "forward"}

// browserPhrases are canonical browser-navigation wordings; an element
// carrying one is talking about history navigation, not page content.
var browserPhrases = []string{
	"back to previous page",
	"go back",
	"go forward",
	"navigate back",
	"navigate forward",
	"return to previous page",
	"browser back",
	"browser forward",
}

// shortcutHints are keyboard-shortcut fragments that only browser/extension
// UI renders inside interactive elements.
var shortcutHints = []string{"ctrl+", "cmd+", "alt+"}

// internalSchemes are document origins owned by the browser itself. A page
// on one of these is settings/devtools surface; nothing on it is content.
var internalSchemes = []string{
	"about:", "chrome:", "chrome-extension:", "chrome-search:",
	"edge:", "moz-extension:", "view-source:", "devtools:",
}

// InternalOrigin reports whether the document origin is a browser-internal
// scheme. This is a whole-pass guard, not a per-element check.
func InternalOrigin(origin string) bool {
	origin = strings.ToLower(strings.TrimSpace(origin))
	for _, s := range internalSchemes {
		if strings.HasPrefix(origin, s) {
			return true
		}
	}
	return false
}

// Filter evaluates elements against the chrome/UI exclusion checks.
type Filter struct {
	cfg config.Tunables
}

// New creates a filter with the given tunables.
func New(cfg config.Tunables) *Filter {
	return &Filter{cfg: cfg}
}

// Check runs all six checks and collects every non-nil reason.
func (f *Filter) Check(facts signal.Facts, text string, vp page.Viewport) Verdict {
	var reasons []string
	for _, check := range []func(signal.Facts, string, page.Viewport) string{
		f.position,
		f.selectorAttr,
		f.ancestor,
		f.size,
		f.zIndex,
		f.browserPhrase,
	} {
		if r := check(facts, text, vp); r != "" {
			reasons = append(reasons, r)
		}
	}
	return Verdict{Excluded: len(reasons) > 0, Reasons: reasons}
}

// position flags elements in the reserved top chrome zone, glued to a
// viewport edge, or substantially outside the viewport.
func (f *Filter) position(facts signal.Facts, _ string, vp page.Viewport) string {
	g := facts.Geometry

	if g.CenterY() < f.cfg.ChromeZonePx {
		return fmt.Sprintf("position: vertical center %.0fpx inside reserved chrome zone", g.CenterY())
	}

	cx := g.CenterX()
	if cx < f.cfg.EdgeSlackPx || (vp.Width > 0 && cx > vp.Width-f.cfg.EdgeSlackPx) {
		return fmt.Sprintf("position: horizontal center %.0fpx glued to viewport edge", cx)
	}

	slack := f.cfg.OffscreenSlackPx
	if g.Left+g.Width < -slack || g.Top+g.Height < -slack ||
		(vp.Width > 0 && g.Left > vp.Width+slack) ||
		(vp.Height > 0 && g.Top > vp.Height+slack) {
		return "position: outside viewport bounds"
	}

	return ""
}

// selectorAttr flags chrome-owned class/id/data tokens and native history
// labels in aria-label/title/alt.
func (f *Filter) selectorAttr(facts signal.Facts, _ string, _ page.Viewport) string {
	for _, tok := range facts.Tokens {
		for _, chrome := range chromeTokens {
			if strings.Contains(tok, chrome) {
				return fmt.Sprintf("selector: token %q matches %q", tok, chrome)
			}
		}
	}
	for name, val := range facts.DataAttrs {
		lv := strings.ToLower(name + "=" + val)
		for _, chrome := range chromeTokens {
			if strings.Contains(lv, chrome) {
				return fmt.Sprintf("selector: data attribute %q matches %q", name, chrome)
			}
		}
	}
	for _, attr := range []string{facts.AriaLabel, facts.Title, facts.Alt} {
		la := strings.ToLower(attr)
		for _, label := range browserLabels {
			// Word match: "Back" labels history buttons, "feedback" does not.
			if la == label || strings.HasPrefix(la, label+" ") ||
				strings.HasSuffix(la, " "+label) || strings.Contains(la, " "+label+" ") {
				return fmt.Sprintf("selector: attribute %q carries browser label %q", attr, label)
			}
		}
	}
	return ""
}

// ancestor walks the capped ancestor chain looking for chrome-owned tokens;
// the first match wins.
func (f *Filter) ancestor(facts signal.Facts, _ string, _ page.Viewport) string {
	for depth, anc := range facts.Ancestors {
		if depth >= page.MaxAncestorDepth {
			break
		}
		toks := make([]string, 0, len(anc.Classes)+1)
		toks = append(toks, anc.Classes...)
		toks = append(toks, anc.ID)
		for _, tok := range toks {
			lt := strings.ToLower(tok)
			for _, chrome := range chromeTokens {
				if strings.Contains(lt, chrome) {
					return fmt.Sprintf("ancestor: depth %d token %q matches %q", depth, tok, chrome)
				}
			}
		}
	}
	return ""
}

// size flags elements too small to be a deliberate control or too large to
// be a single navigation button.
func (f *Filter) size(facts signal.Facts, _ string, _ page.Viewport) string {
	g := facts.Geometry
	switch {
	case g.Width < f.cfg.MinDimensionPx || g.Height < f.cfg.MinDimensionPx:
		return fmt.Sprintf("size: %.0fx%.0f below minimum dimension", g.Width, g.Height)
	case g.Width > f.cfg.MaxWidthPx:
		return fmt.Sprintf("size: width %.0fpx above maximum", g.Width)
	case g.Height > f.cfg.MaxHeightPx:
		return fmt.Sprintf("size: height %.0fpx above maximum", g.Height)
	case g.Area() < f.cfg.MinAreaPx:
		return fmt.Sprintf("size: area %.0fpx² below minimum", g.Area())
	}
	return ""
}

// zIndex flags stacking levels only overlay chrome uses. The int32 maximum
// is "suspicious" rather than merely high, but the outcome is identical.
func (f *Filter) zIndex(facts signal.Facts, _ string, _ page.Viewport) string {
	if facts.ZIndex == nil {
		return ""
	}
	z := *facts.ZIndex
	switch {
	case z >= f.cfg.SuspiciousZIndex:
		return fmt.Sprintf("z-index: %d suspicious", z)
	case z >= f.cfg.HighZIndex:
		return fmt.Sprintf("z-index: %d high", z)
	}
	return ""
}

// browserPhrase flags combined text carrying canonical browser-navigation
// phrases or keyboard-shortcut hints.
func (f *Filter) browserPhrase(_ signal.Facts, text string, _ page.Viewport) string {
	for _, phrase := range browserPhrases {
		if strings.Contains(text, phrase) {
			return fmt.Sprintf("phrase: text contains %q", phrase)
		}
	}
	for _, hint := range shortcutHints {
		if strings.Contains(text, hint) {
			return fmt.Sprintf("phrase: text contains shortcut hint %q", hint)
		}
	}
	return ""
}
