package exclude

import (
	"strings"
	"testing"

	"github.com/hazyhaar/navkey/navdetect/internal/config"
	"github.com/hazyhaar/navkey/navdetect/internal/signal"
	"github.com/hazyhaar/navkey/navdetect/page"
)

var vp = page.Viewport{Width: 1280, Height: 800}

// contentFacts returns facts for an ordinary, clearly includable element
// sitting mid-page.
func contentFacts() signal.Facts {
	return signal.Facts{
		Kind:     page.KindLink,
		Geometry: page.Geometry{Top: 400, Left: 600, Width: 80, Height: 32},
	}
}

func newFilter() *Filter { return New(config.Defaults()) }

func TestIncludedByDefault(t *testing.T) {
	v := newFilter().Check(contentFacts(), "next page", vp)
	if v.Excluded {
		t.Fatalf("excluded ordinary element: %v", v.Reasons)
	}
}

func TestPositionChromeZone(t *testing.T) {
	facts := contentFacts()
	facts.Geometry.Top = 40 // center at 56px, inside the 120px strip
	v := newFilter().Check(facts, "", vp)
	if !v.Excluded {
		t.Fatal("element in chrome zone not excluded")
	}
}

func TestPositionEdgeGlued(t *testing.T) {
	facts := contentFacts()
	facts.Geometry.Left = -38 // center at 2px from left edge
	v := newFilter().Check(facts, "", vp)
	if !v.Excluded {
		t.Fatal("edge-glued element not excluded")
	}
}

func TestPositionOffscreen(t *testing.T) {
	facts := contentFacts()
	facts.Geometry.Left = 1400 // 120px beyond right edge, past the 50px slack
	v := newFilter().Check(facts, "", vp)
	if !v.Excluded {
		t.Fatal("offscreen element not excluded")
	}
}

func TestSelectorTokens(t *testing.T) {
	for _, tok := range []string{"chrome-button", "browser-nav", "extension-popup", "toolbar-item"} {
		facts := contentFacts()
		facts.Tokens = []string{tok}
		v := newFilter().Check(facts, "", vp)
		if !v.Excluded {
			t.Errorf("token %q not excluded", tok)
		}
	}
}

func TestSelectorBrowserLabelWordMatch(t *testing.T) {
	facts := contentFacts()
	facts.AriaLabel = "Back"
	if v := newFilter().Check(facts, "", vp); !v.Excluded {
		t.Error("aria-label \"Back\" not excluded")
	}

	// "feedback" must not trip the Back label.
	facts = contentFacts()
	facts.Title = "Send feedback"
	if v := newFilter().Check(facts, "send feedback", vp); v.Excluded {
		t.Errorf("\"feedback\" wrongly excluded: %v", v.Reasons)
	}
}

func TestAncestorTokens(t *testing.T) {
	facts := contentFacts()
	facts.Ancestors = []page.Ancestor{
		{Tag: "div", Classes: []string{"content"}},
		{Tag: "div", Classes: []string{"extension-root"}},
	}
	v := newFilter().Check(facts, "", vp)
	if !v.Excluded {
		t.Fatal("chrome-owned ancestor not excluded")
	}
}

func TestSizeMonotonic(t *testing.T) {
	f := newFilter()

	// Shrinking an included element below 8x8 flips it to excluded.
	facts := contentFacts()
	if f.Check(facts, "", vp).Excluded {
		t.Fatal("baseline excluded")
	}
	facts.Geometry.Width, facts.Geometry.Height = 7, 7
	if !f.Check(facts, "", vp).Excluded {
		t.Error("sub-minimum element not excluded")
	}

	// Growing above 500x200 flips it to excluded.
	facts = contentFacts()
	facts.Geometry.Width = 600
	if !f.Check(facts, "", vp).Excluded {
		t.Error("over-wide element not excluded")
	}
	facts = contentFacts()
	facts.Geometry.Height = 250
	if !f.Check(facts, "", vp).Excluded {
		t.Error("over-tall element not excluded")
	}

	// Area floor: 9x7 fails on dimension, 9x8 on area? 9*8=72 ≥ 64 passes;
	// 8x8=64 exactly passes; use 10x6 → dimension, and 8x8 shrunk via width.
	facts = contentFacts()
	facts.Geometry.Width, facts.Geometry.Height = 8, 8
	if f.Check(facts, "", vp).Excluded {
		t.Error("8x8 element wrongly excluded")
	}
}

func TestZIndexThresholds(t *testing.T) {
	f := newFilter()

	high := 999_999
	facts := contentFacts()
	facts.ZIndex = &high
	if !f.Check(facts, "", vp).Excluded {
		t.Error("high z-index not excluded")
	}

	// int32 max excludes independent of all other facts.
	sus := 2_147_483_647
	facts = contentFacts()
	facts.ZIndex = &sus
	if !f.Check(facts, "", vp).Excluded {
		t.Error("suspicious z-index not excluded")
	}

	normal := 10
	facts = contentFacts()
	facts.ZIndex = &normal
	if f.Check(facts, "", vp).Excluded {
		t.Error("normal z-index wrongly excluded")
	}
}

func TestBrowserPhrases(t *testing.T) {
	f := newFilter()
	for _, text := range []string{
		"back to previous page",
		"go back",
		"navigate forward",
		"reload ctrl+r",
	} {
		facts := contentFacts()
		if !f.Check(facts, text, vp).Excluded {
			t.Errorf("phrase %q not excluded", text)
		}
	}
}

func TestVerdictCollectsAllReasons(t *testing.T) {
	// aria-label "Back to previous page" + class "chrome-navigation-button"
	// must carry both the selector reason and the phrase reason.
	facts := contentFacts()
	facts.AriaLabel = "Back to previous page"
	facts.Tokens = []string{"chrome-navigation-button"}

	v := newFilter().Check(facts, "back to previous page", vp)
	if !v.Excluded {
		t.Fatal("not excluded")
	}
	if len(v.Reasons) < 2 {
		t.Fatalf("Reasons: got %d (%v), want at least 2", len(v.Reasons), v.Reasons)
	}
	var hasSelector, hasPhrase bool
	for _, r := range v.Reasons {
		if strings.HasPrefix(r, "selector:") {
			hasSelector = true
		}
		if strings.HasPrefix(r, "phrase:") {
			hasPhrase = true
		}
	}
	if !hasSelector || !hasPhrase {
		t.Errorf("Reasons missing selector/phrase: %v", v.Reasons)
	}
}

func TestInternalOrigin(t *testing.T) {
	cases := []struct {
		origin string
		want   bool
	}{
		{"chrome://settings", true},
		{"about:blank", true},
		{"moz-extension://abc", true},
		{"devtools://devtools", true},
		{"https://example.com", false},
		{"http://localhost:8080", false},
	}
	for _, c := range cases {
		if got := InternalOrigin(c.origin); got != c.want {
			t.Errorf("InternalOrigin(%q): got %v, want %v", c.origin, got, c.want)
		}
	}
}
