package store

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/navkey/dbopen"
	"github.com/hazyhaar/navkey/navdetect/page"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s, err := NewWithDB(db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPutGetRoundtrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	o := &Override{
		Site:     "example.com",
		Intent:   page.IntentNext,
		Selector: `a.pagination-next`,
		Text:     "next page",
	}
	if err := s.Put(ctx, o); err != nil {
		t.Fatal(err)
	}
	if o.ID == "" {
		t.Fatal("Put did not assign an ID")
	}

	got, err := s.Get(ctx, "example.com", page.IntentNext)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("Get returned nil for trained site")
	}
	if got.Selector != o.Selector || got.Intent != page.IntentNext {
		t.Errorf("got %+v, want selector %q intent next", got, o.Selector)
	}
}

func TestGetUntrainedReturnsNil(t *testing.T) {
	s := openTest(t)
	got, err := s.Get(context.Background(), "nowhere.example", page.IntentPrevious)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestPutReplacesPerSiteIntent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.Put(ctx, &Override{Site: "example.com", Intent: page.IntentNext, Selector: "a.old"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, &Override{Site: "example.com", Intent: page.IntentNext, Selector: "a.new"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "example.com", page.IntentNext)
	if err != nil {
		t.Fatal(err)
	}
	if got.Selector != "a.new" {
		t.Errorf("Selector: got %q, want a.new", got.Selector)
	}
}

func TestGetSiteBothIntents(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.Put(ctx, &Override{Site: "example.com", Intent: page.IntentPrevious, Selector: "a.prev"})
	s.Put(ctx, &Override{Site: "example.com", Intent: page.IntentNext, Selector: "a.next"})

	prev, next, err := s.GetSite(ctx, "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if prev == nil || prev.Selector != "a.prev" {
		t.Errorf("prev: got %+v", prev)
	}
	if next == nil || next.Selector != "a.next" {
		t.Errorf("next: got %+v", next)
	}
}

func TestDeleteAndDeleteSite(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.Put(ctx, &Override{Site: "example.com", Intent: page.IntentPrevious, Selector: "a.prev"})
	s.Put(ctx, &Override{Site: "example.com", Intent: page.IntentNext, Selector: "a.next"})

	if err := s.Delete(ctx, "example.com", page.IntentPrevious); err != nil {
		t.Fatal(err)
	}
	prev, next, _ := s.GetSite(ctx, "example.com")
	if prev != nil || next == nil {
		t.Fatalf("after Delete: prev %+v, next %+v", prev, next)
	}

	if err := s.DeleteSite(ctx, "example.com"); err != nil {
		t.Fatal(err)
	}
	_, next, _ = s.GetSite(ctx, "example.com")
	if next != nil {
		t.Fatalf("after DeleteSite: next %+v", next)
	}
}

func TestRecordUse(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	o := &Override{Site: "example.com", Intent: page.IntentNext, Selector: "a.next"}
	s.Put(ctx, o)

	if err := s.RecordUse(ctx, o.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordUse(ctx, o.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Get(ctx, "example.com", page.IntentNext)
	if got.TotalUses != 2 {
		t.Errorf("TotalUses: got %d, want 2", got.TotalUses)
	}
	if got.LastUsed == nil {
		t.Error("LastUsed not set")
	}
}

func TestListSites(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.Put(ctx, &Override{Site: "a.example", Intent: page.IntentNext, Selector: "a"})
	s.Put(ctx, &Override{Site: "b.example", Intent: page.IntentNext, Selector: "b"})
	s.Put(ctx, &Override{Site: "b.example", Intent: page.IntentPrevious, Selector: "c"})

	sites, err := s.ListSites(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sites) != 2 {
		t.Fatalf("sites: got %v, want 2 distinct", sites)
	}
}
