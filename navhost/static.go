package navhost

import (
	"bytes"
	"context"
	"fmt"
	stdhtml "html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/navkey/navdetect/page"
)

// Static geometry is synthetic: server-rendered HTML carries no layout, so
// every element gets a neutral mid-viewport box. Position-based scoring
// neither favours nor excludes anything; text and attribute signals decide.
const (
	staticViewportW = 1280
	staticViewportH = 800
	staticRowH      = 24
)

// Static hosts a server-rendered document over plain HTTP. No browser, no
// JS. Activation follows the element's href: the next Snapshot fetches the
// new location.
type Static struct {
	client *http.Client
	ua     string
	policy *bluemonday.Policy
	logger *slog.Logger

	mu      sync.Mutex
	current string
	refs    map[string]staticElement
}

// staticElement retains what activation and selector resolution need.
type staticElement struct {
	ref     string
	tag     string
	id      string
	classes []string
	href    string
}

// StaticOption configures a Static host.
type StaticOption func(*Static)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) StaticOption {
	return func(s *Static) { s.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) StaticOption {
	return func(s *Static) { s.ua = ua }
}

// WithStaticLogger sets a custom logger.
func WithStaticLogger(l *slog.Logger) StaticOption {
	return func(s *Static) { s.logger = l }
}

// NewStatic creates a static host pointed at pageURL.
func NewStatic(pageURL string, opts ...StaticOption) *Static {
	s := &Static{
		client:  &http.Client{Timeout: 30 * time.Second},
		ua:      "Mozilla/5.0 (compatible; navkey/1.0)",
		policy:  bluemonday.StrictPolicy(),
		logger:  slog.Default(),
		current: pageURL,
		refs:    map[string]staticElement{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// URL returns the current location.
func (s *Static) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Snapshot GETs the current location and collects its interactive elements.
func (s *Static) Snapshot(ctx context.Context) (*page.Snapshot, error) {
	s.mu.Lock()
	pageURL := s.current
	s.mu.Unlock()

	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("navhost: parse url: %w", err)
	}

	var (
		elements []page.Element
		refs     = map[string]staticElement{}
		seq      int
	)

	walkElements(doc, nil, func(n *html.Node, ancestors []page.Ancestor) {
		if !interactive(n) {
			return
		}
		seq++
		ref := fmt.Sprintf("st-%d", seq)

		el := page.Element{
			Ref:       ref,
			Kind:      kindOf(n),
			ID:        attr(n, "id"),
			Rel:       attr(n, "rel"),
			AriaLabel: attr(n, "aria-label"),
			Title:     attr(n, "title"),
			Alt:       attr(n, "alt"),
			Text:      s.textOf(n),
			IconNames: iconNamesOf(n),
		}
		if cls := attr(n, "class"); cls != "" {
			el.Classes = strings.Fields(cls)
		}
		for _, a := range n.Attr {
			if strings.HasPrefix(a.Key, "data-") {
				if el.DataAttrs == nil {
					el.DataAttrs = map[string]string{}
				}
				el.DataAttrs[strings.TrimPrefix(a.Key, "data-")] = a.Val
			}
		}
		if len(ancestors) > page.MaxAncestorDepth {
			ancestors = ancestors[:page.MaxAncestorDepth]
		}
		el.Ancestors = append([]page.Ancestor(nil), ancestors...)
		el.Geometry = syntheticGeometry(el.Text)

		elements = append(elements, el)
		refs[ref] = staticElement{
			ref:     ref,
			tag:     n.Data,
			id:      el.ID,
			classes: el.Classes,
			href:    attr(n, "href"),
		}
	})

	s.mu.Lock()
	s.refs = refs
	s.mu.Unlock()

	s.logger.Debug("navhost: static snapshot", "url", pageURL, "elements", len(elements))

	return &page.Snapshot{
		Origin:   u.Scheme + "://" + u.Host,
		URL:      pageURL,
		Viewport: page.Viewport{Width: staticViewportW, Height: staticViewportH},
		Elements: elements,
	}, nil
}

// Resolve matches a simple selector ("#id", "tag.class", ".class", "tag")
// against the last snapshot's elements.
func (s *Static) Resolve(ctx context.Context, selector string) (string, error) {
	sel, err := parseSelector(selector)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 1; ; i++ {
		el, ok := s.refs[fmt.Sprintf("st-%d", i)]
		if !ok {
			return "", nil
		}
		if sel.matches(el) {
			return el.ref, nil
		}
	}
}

// Activate follows the element's href. The location change takes effect on
// the next Snapshot.
func (s *Static) Activate(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.refs[ref]
	if !ok {
		return fmt.Errorf("navhost: ref %q is stale", ref)
	}
	if el.href == "" {
		return fmt.Errorf("navhost: ref %q has no href; static host cannot activate it", ref)
	}

	base, err := url.Parse(s.current)
	if err != nil {
		return fmt.Errorf("navhost: parse current url: %w", err)
	}
	target, err := base.Parse(el.href)
	if err != nil {
		return fmt.Errorf("navhost: parse href %q: %w", el.href, err)
	}

	s.logger.Info("navhost: static activation", "from", s.current, "to", target.String())
	s.current = target.String()
	return nil
}

func (s *Static) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("navhost: new request: %w", err)
	}
	req.Header.Set("User-Agent", s.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("navhost: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("navhost: fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("navhost: read body: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("navhost: parse html: %w", err)
	}
	return doc, nil
}

// textOf renders the node's children and strips all markup.
func (s *Static) textOf(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	clean := s.policy.Sanitize(buf.String())
	return strings.Join(strings.Fields(stdhtml.UnescapeString(clean)), " ")
}

// walkElements visits every element node with its ancestor chain, nearest
// first.
func walkElements(n *html.Node, chain []page.Ancestor, visit func(*html.Node, []page.Ancestor)) {
	if n.Type == html.ElementNode {
		visit(n, chain)
		entry := page.Ancestor{
			Tag:  n.Data,
			ID:   attr(n, "id"),
			Role: attr(n, "role"),
		}
		if cls := attr(n, "class"); cls != "" {
			entry.Classes = strings.Fields(cls)
		}
		chain = append([]page.Ancestor{entry}, chain...)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, chain, visit)
	}
}

func interactive(n *html.Node) bool {
	switch n.DataAtom {
	case atom.A:
		return attr(n, "href") != ""
	case atom.Button:
		return true
	}
	if attr(n, "role") == "button" || attr(n, "onclick") != "" {
		return true
	}
	if n.DataAtom == atom.Input {
		t := attr(n, "type")
		return t == "button" || t == "submit"
	}
	return false
}

func kindOf(n *html.Node) page.Kind {
	switch n.DataAtom {
	case atom.A:
		return page.KindLink
	case atom.Button:
		return page.KindButton
	}
	return page.KindGeneric
}

func iconNamesOf(n *html.Node) []string {
	var names []string
	var f func(*html.Node)
	f = func(c *html.Node) {
		if c.Type == html.ElementNode {
			switch c.Data {
			case "svg", "use", "i":
				for _, key := range []string{"data-icon", "aria-label", "name"} {
					if v := attr(c, key); v != "" {
						names = append(names, v)
					}
				}
				if href := attr(c, "href"); strings.HasPrefix(href, "#") {
					names = append(names, href[1:])
				}
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			f(cc)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f(c)
	}
	return names
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func syntheticGeometry(text string) page.Geometry {
	w := float64(40 + 8*len(text))
	if w > 300 {
		w = 300
	}
	return page.Geometry{
		Top:    staticViewportH/2 - staticRowH/2,
		Left:   (staticViewportW - w) / 2,
		Width:  w,
		Height: staticRowH,
	}
}

// selector is the tiny subset of CSS the static host resolves.
type selector struct {
	tag   string
	id    string
	class string
}

func parseSelector(raw string) (selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return selector{}, fmt.Errorf("navhost: empty selector")
	}
	var sel selector
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		sel.tag = raw[:i]
		sel.id = raw[i+1:]
		return sel, nil
	}
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		sel.tag = raw[:i]
		sel.class = raw[i+1:]
		return sel, nil
	}
	sel.tag = raw
	return sel, nil
}

func (sel selector) matches(el staticElement) bool {
	if sel.tag != "" && sel.tag != el.tag {
		return false
	}
	if sel.id != "" && sel.id != el.id {
		return false
	}
	if sel.class != "" {
		for _, c := range el.classes {
			if c == sel.class {
				return true
			}
		}
		return false
	}
	return true
}
