package navbind

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/navkey/navdetect/page"
	"github.com/hazyhaar/navkey/rescan"
)

// fakeHost serves a fixed snapshot and records activations.
type fakeHost struct {
	mu        sync.Mutex
	snap      *page.Snapshot
	snapErr   error
	resolve   map[string]string
	activated []string
}

func (h *fakeHost) Snapshot(ctx context.Context) (*page.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snapErr != nil {
		return nil, h.snapErr
	}
	return h.snap, nil
}

func (h *fakeHost) Resolve(ctx context.Context, selector string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolve[selector], nil
}

func (h *fakeHost) Activate(ctx context.Context, ref string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activated = append(h.activated, ref)
	return nil
}

func (h *fakeHost) activations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.activated...)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSnapshot() *page.Snapshot {
	vp := page.Viewport{Width: 1200, Height: 800}
	return &page.Snapshot{
		URL:      "https://example.com/articles?page=3",
		Viewport: vp,
		Elements: []page.Element{
			{
				Ref:      "el-prev",
				Kind:     page.KindLink,
				Text:     "Previous page",
				Geometry: page.Geometry{Top: 700, Left: 100, Width: 120, Height: 40},
			},
			{
				Ref:      "el-next",
				Kind:     page.KindLink,
				Text:     "Next page",
				Geometry: page.Geometry{Top: 700, Left: 900, Width: 120, Height: 40},
			},
		},
	}
}

// startBinder runs the binder and waits for the initial pass.
func startBinder(t *testing.T, b *Binder) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	waitFor(t, func() bool { return b.Scans() >= 1 })
	return cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestInitialScanBindsBothIntents(t *testing.T) {
	host := &fakeHost{snap: testSnapshot()}
	b, err := New(Config{Host: host, Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	cancel := startBinder(t, b)
	defer cancel()

	if got := b.Site(); got != "example.com" {
		t.Errorf("Site: got %q, want example.com", got)
	}

	bs := b.Bindings()
	if len(bs) != 2 {
		t.Fatalf("bindings: got %d, want 2", len(bs))
	}
	if bs[0].Intent != page.IntentPrevious || bs[0].Ref != "el-prev" {
		t.Errorf("previous binding: got %+v", bs[0])
	}
	if bs[1].Intent != page.IntentNext || bs[1].Ref != "el-next" {
		t.Errorf("next binding: got %+v", bs[1])
	}
	for _, bd := range bs {
		if bd.Source != SourceDetected {
			t.Errorf("%s source: got %q, want detected", bd.Intent, bd.Source)
		}
	}
}

func TestActivateInvokesHost(t *testing.T) {
	host := &fakeHost{snap: testSnapshot()}
	b, err := New(Config{Host: host, Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	cancel := startBinder(t, b)
	defer cancel()

	if err := b.Activate(context.Background(), page.IntentNext); err != nil {
		t.Fatal(err)
	}
	got := host.activations()
	if len(got) != 1 || got[0] != "el-next" {
		t.Errorf("activations: got %v, want [el-next]", got)
	}
}

func TestActivateWithoutBinding(t *testing.T) {
	host := &fakeHost{snap: &page.Snapshot{
		URL:      "https://example.com/",
		Viewport: page.Viewport{Width: 1200, Height: 800},
	}}
	b, err := New(Config{Host: host, Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	cancel := startBinder(t, b)
	defer cancel()

	if err := b.Activate(context.Background(), page.IntentNext); err == nil {
		t.Fatal("expected error for missing binding")
	}
}

func TestTrainedOverrideBeatsDetection(t *testing.T) {
	host := &fakeHost{
		snap:    testSnapshot(),
		resolve: map[string]string{"a.trained-next": "el-trained"},
	}
	b, err := New(Config{
		Host:      host,
		StorePath: filepath.Join(t.TempDir(), "overrides.db"),
		Logger:    quiet(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	cancel := startBinder(t, b)
	defer cancel()

	ctx := context.Background()
	if err := b.Train(ctx, page.IntentNext, "a.trained-next", "episode 4"); err != nil {
		t.Fatal(err)
	}

	var next *Binding
	for _, bd := range b.Bindings() {
		if bd.Intent == page.IntentNext {
			bd := bd
			next = &bd
		}
	}
	if next == nil {
		t.Fatal("no next binding after training")
	}
	if next.Source != SourceTrained || next.Ref != "el-trained" {
		t.Errorf("next binding: got %+v, want trained el-trained", next)
	}

	// Previous stays detected: training one intent leaves the other alone.
	bs := b.Bindings()
	if bs[0].Intent != page.IntentPrevious || bs[0].Source != SourceDetected {
		t.Errorf("previous binding: got %+v", bs[0])
	}
}

func TestUnresolvedOverrideFallsBack(t *testing.T) {
	host := &fakeHost{snap: testSnapshot(), resolve: map[string]string{}}
	b, err := New(Config{
		Host:      host,
		StorePath: filepath.Join(t.TempDir(), "overrides.db"),
		Logger:    quiet(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	cancel := startBinder(t, b)
	defer cancel()

	// Selector trained on a past layout that no longer matches anything.
	if err := b.Train(context.Background(), page.IntentNext, "a.gone", ""); err != nil {
		t.Fatal(err)
	}

	for _, bd := range b.Bindings() {
		if bd.Intent == page.IntentNext {
			if bd.Source != SourceDetected || bd.Ref != "el-next" {
				t.Errorf("next binding: got %+v, want detected el-next", bd)
			}
			return
		}
	}
	t.Fatal("no next binding")
}

func TestUntrainRestoresDetection(t *testing.T) {
	host := &fakeHost{
		snap:    testSnapshot(),
		resolve: map[string]string{"a.trained-next": "el-trained"},
	}
	b, err := New(Config{
		Host:      host,
		StorePath: filepath.Join(t.TempDir(), "overrides.db"),
		Logger:    quiet(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	cancel := startBinder(t, b)
	defer cancel()

	ctx := context.Background()
	if err := b.Train(ctx, page.IntentNext, "a.trained-next", ""); err != nil {
		t.Fatal(err)
	}
	if err := b.Untrain(ctx, page.IntentNext); err != nil {
		t.Fatal(err)
	}

	for _, bd := range b.Bindings() {
		if bd.Intent == page.IntentNext {
			if bd.Source != SourceDetected || bd.Ref != "el-next" {
				t.Errorf("next binding: got %+v, want detected el-next", bd)
			}
			return
		}
	}
	t.Fatal("no next binding")
}

func TestNavigationEventRebinds(t *testing.T) {
	host := &fakeHost{snap: testSnapshot()}
	b, err := New(Config{
		Host:   host,
		Rescan: rescan.Config{NavigationSettle: 10 * time.Millisecond},
		Logger: quiet(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	cancel := startBinder(t, b)
	defer cancel()

	host.mu.Lock()
	host.snap = &page.Snapshot{
		URL:      "https://example.com/articles?page=4",
		Viewport: page.Viewport{Width: 1200, Height: 800},
		Elements: []page.Element{{
			Ref:      "el-next-4",
			Kind:     page.KindLink,
			Text:     "Next page",
			Geometry: page.Geometry{Top: 700, Left: 900, Width: 120, Height: 40},
		}},
	}
	host.mu.Unlock()

	b.Notify(rescan.NavigationEvent())
	waitFor(t, func() bool { return b.Scans() >= 2 })

	bs := b.Bindings()
	if len(bs) != 1 || bs[0].Ref != "el-next-4" {
		t.Fatalf("bindings after navigation: got %+v", bs)
	}
}

func TestTrainWithoutStore(t *testing.T) {
	host := &fakeHost{snap: testSnapshot()}
	b, err := New(Config{Host: host, Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	cancel := startBinder(t, b)
	defer cancel()

	err = b.Train(context.Background(), page.IntentNext, "a.x", "")
	if err == nil {
		t.Fatal("expected error when override store is disabled")
	}
}

func TestSnapshotFailureSurfacesAsRetry(t *testing.T) {
	host := &fakeHost{snapErr: fmt.Errorf("page not ready")}
	b, err := New(Config{
		Host: host,
		Rescan: rescan.Config{
			InitRetries:    2,
			InitRetryDelay: 5 * time.Millisecond,
		},
		Logger: quiet(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	// Let retries exhaust, then make the page available and re-arm.
	time.Sleep(30 * time.Millisecond)
	if b.Scans() != 0 {
		t.Fatalf("scans before recovery: got %d, want 0", b.Scans())
	}

	host.mu.Lock()
	host.snapErr = nil
	host.snap = testSnapshot()
	host.mu.Unlock()

	b.Notify(rescan.MutationEvent(rescan.OpNodeAdd, "", []string{"pagination"}))
	waitFor(t, func() bool { return b.Scans() >= 1 })
}
