// Package signal turns a raw element into the normalized text signal and
// structural facts the filter and scorer consume. Extraction is a pure
// function of the element's state at call time; callers must re-extract
// after the document changes.
package signal

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/navkey/navdetect/page"
)

// Facts are the structural properties the exclusion filter and ranking
// bonuses operate on.
type Facts struct {
	Kind      page.Kind
	Geometry  page.Geometry
	ZIndex    *int
	Rel       string
	Tokens    []string // lowercased class + id tokens
	DataAttrs map[string]string
	AriaLabel string
	Title     string
	Alt       string
	Ancestors []page.Ancestor
}

// Signal is one element's extracted view.
type Signal struct {
	Text  string // lowercase, whitespace-collapsed
	Facts Facts
}

// directionalClassFragment matches class fragments worth folding into the
// text signal: icon names and direction words often live only in classes
// (e.g. "fa-chevron-right", "icon-arrow-left").
var directionalClassFragment = regexp.MustCompile(
	`(?i)(icon|arrow|chevron|caret|angle|next|prev|previous|forward|backward|back)`)

var whitespace = regexp.MustCompile(`\s+`)

// Extract derives the text signal and structural facts for one element.
func Extract(el page.Element) Signal {
	var parts []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			parts = append(parts, s)
		}
	}

	add(el.Text)
	add(el.AriaLabel)
	add(el.Title)
	add(el.Alt)
	for _, icon := range el.IconNames {
		add(icon)
	}
	for _, cls := range el.Classes {
		if directionalClassFragment.MatchString(cls) {
			add(cls)
		}
	}

	text := strings.ToLower(strings.Join(parts, " "))
	text = whitespace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	ancestors := el.Ancestors
	if len(ancestors) > page.MaxAncestorDepth {
		ancestors = ancestors[:page.MaxAncestorDepth]
	}

	return Signal{
		Text: text,
		Facts: Facts{
			Kind:      el.Kind,
			Geometry:  el.Geometry,
			ZIndex:    el.ZIndex,
			Rel:       strings.ToLower(strings.TrimSpace(el.Rel)),
			Tokens:    tokens(el),
			DataAttrs: el.DataAttrs,
			AriaLabel: el.AriaLabel,
			Title:     el.Title,
			Alt:       el.Alt,
			Ancestors: ancestors,
		},
	}
}

// tokens collects lowercased class and id tokens. Hyphen/underscore
// separators are kept intact: the exclusion filter matches on prefixes
// like "chrome-".
func tokens(el page.Element) []string {
	out := make([]string, 0, len(el.Classes)+1)
	for _, c := range el.Classes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	if id := strings.ToLower(strings.TrimSpace(el.ID)); id != "" {
		out = append(out, id)
	}
	return out
}
