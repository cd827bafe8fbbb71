// Package page defines the value types exchanged between hosts and the
// detection engine. These are the public API contract: any host (live
// browser, static fetcher, test harness) produces a Snapshot and consumes
// a Result.
//
// All types are plain data. Extraction and scoring never mutate them, so a
// Snapshot can be shared between passes — but note that a snapshot reflects
// the document at collection time; hosts must re-collect after mutations.
package page

// Kind is the interactive tag kind of an element.
type Kind string

const (
	KindLink    Kind = "a"
	KindButton  Kind = "button"
	KindGeneric Kind = "generic" // role=button divs, interactive containers
)

// Intent is one of the two directions the engine classifies elements toward.
type Intent string

const (
	IntentPrevious Intent = "previous"
	IntentNext     Intent = "next"
)

// Geometry is an element's bounding box in viewport coordinates.
type Geometry struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns width*height. Zero-size boxes have zero area.
func (g Geometry) Area() float64 { return g.Width * g.Height }

// CenterX returns the horizontal center of the box.
func (g Geometry) CenterX() float64 { return g.Left + g.Width/2 }

// CenterY returns the vertical center of the box.
func (g Geometry) CenterY() float64 { return g.Top + g.Height/2 }

// Viewport is the visible document area at collection time.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Ancestor is one entry in an element's ancestor chain, nearest first.
type Ancestor struct {
	Tag     string   `json:"tag"`
	ID      string   `json:"id,omitempty"`
	Classes []string `json:"classes,omitempty"`
	Role    string   `json:"role,omitempty"`
}

// MaxAncestorDepth bounds the ancestor chain to keep extraction cheap on
// deep trees. Producers must cap chains at this depth; the engine ignores
// entries beyond it.
const MaxAncestorDepth = 10

// Element is a read-only view of one interactive document element, as
// collected by a host. Ref is the host's stable handle: the engine never
// interprets it, only hands it back in results.
type Element struct {
	Ref       string            `json:"ref"`
	Kind      Kind              `json:"kind"`
	Geometry  Geometry          `json:"geometry"`
	ZIndex    *int              `json:"z_index,omitempty"` // nil when computed style is non-numeric
	ID        string            `json:"id,omitempty"`
	Classes   []string          `json:"classes,omitempty"`
	DataAttrs map[string]string `json:"data_attrs,omitempty"`
	Rel       string            `json:"rel,omitempty"`
	AriaLabel string            `json:"aria_label,omitempty"`
	Title     string            `json:"title,omitempty"`
	Alt       string            `json:"alt,omitempty"`
	Text      string            `json:"text,omitempty"`
	IconNames []string          `json:"icon_names,omitempty"` // nested svg/icon name attributes
	Ancestors []Ancestor        `json:"ancestors,omitempty"`  // nearest first, capped at MaxAncestorDepth
}

// Snapshot is the host-collected input to one detection pass.
type Snapshot struct {
	Origin   string    `json:"origin"` // URL scheme+host, used for the browser-internal guard
	URL      string    `json:"url"`
	Viewport Viewport  `json:"viewport"`
	Elements []Element `json:"elements"`
}

// Pick is one intent's chosen element with its ranking context.
type Pick struct {
	Ref     string `json:"ref"`
	Text    string `json:"text"`
	Score   int    `json:"score"`
	Special bool   `json:"special"` // overlay/episodic context candidate
}

// Result is the outcome of one detection pass. Each pointer is nil when no
// candidate qualified for that intent. A new Result wholesale replaces the
// previous one; the engine retains no history.
type Result struct {
	Previous *Pick `json:"previous"`
	Next     *Pick `json:"next"`
}

// Empty reports whether neither intent found a candidate.
func (r Result) Empty() bool { return r.Previous == nil && r.Next == nil }

// ForIntent returns the pick for the given intent, nil when none.
func (r Result) ForIntent(in Intent) *Pick {
	if in == IntentPrevious {
		return r.Previous
	}
	return r.Next
}
