package navdetect

import (
	"github.com/hazyhaar/navkey/navdetect/internal/exclude"
	"github.com/hazyhaar/navkey/navdetect/internal/signal"
	"github.com/hazyhaar/navkey/navdetect/page"
)

// Delta is one scored component in a trace breakdown.
type Delta struct {
	Tag   string `json:"tag"`
	Value int    `json:"value"`
}

// Trace is the full decision record for one element. Observational only:
// the status surface and logs consume it, the decision never does.
type Trace struct {
	Ref       string      `json:"ref"`
	Text      string      `json:"text"`
	Excluded  bool        `json:"excluded"`
	Reasons   []string    `json:"reasons,omitempty"`
	Intent    page.Intent `json:"intent,omitempty"`
	Method    string      `json:"method,omitempty"`
	Score     int         `json:"score"`
	Breakdown []Delta     `json:"breakdown,omitempty"`
}

// Explain runs the same decisions as Detect but records every per-element
// verdict instead of selecting winners. Intended for the status surface
// and debugging; not part of the hot path.
func (d *Detector) Explain(snap *page.Snapshot) []Trace {
	if snap == nil {
		return nil
	}
	if exclude.InternalOrigin(snap.Origin) {
		return []Trace{{Excluded: true, Reasons: []string{"origin: browser-internal scheme"}}}
	}

	traces := make([]Trace, 0, len(snap.Elements))
	for _, el := range snap.Elements {
		traces = append(traces, d.explainElement(el, snap.Viewport))
	}
	return traces
}

func (d *Detector) explainElement(el page.Element, vp page.Viewport) (tr Trace) {
	defer func() {
		if r := recover(); r != nil {
			tr = Trace{Ref: el.Ref, Excluded: true, Reasons: []string{"malformed element"}}
		}
	}()

	sig := signal.Extract(el)
	tr = Trace{Ref: el.Ref, Text: sig.Text}

	if v := d.filter.Check(sig.Facts, sig.Text, vp); v.Excluded {
		tr.Excluded = true
		tr.Reasons = v.Reasons
		return tr
	}

	in, method, ok := d.scorer.ClassifyElement(sig)
	tr.Method = string(method)
	if !ok {
		return tr
	}
	tr.Intent = in

	score, bd := d.scorer.Score(sig, vp, in)
	tr.Score = score
	tr.Breakdown = make([]Delta, len(bd))
	for i, dlt := range bd {
		tr.Breakdown[i] = Delta{Tag: dlt.Tag, Value: dlt.Value}
	}
	return tr
}
