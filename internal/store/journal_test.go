package store

import (
	"context"
	"testing"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/engine"
	"github.com/roach88/pickup/internal/state"
)

func appendAction(t *testing.T, s *Store, seq int64, a action.Action) {
	t.Helper()
	env, err := action.Encode(a)
	if err != nil {
		t.Fatalf("Encode(%s) failed: %v", a.Kind(), err)
	}
	if err := s.Append(context.Background(), seq, env); err != nil {
		t.Fatalf("Append(%d) failed: %v", seq, err)
	}
}

func TestJournal_AppendAndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	appendAction(t, s, 1, action.AuthChecked{UserID: "u1"})
	appendAction(t, s, 3, action.SearchChanged{Query: "apple"})
	appendAction(t, s, 2, action.OpenDrawer{})

	entries, err := s.ReadJournal(ctx, 0)
	if err != nil {
		t.Fatalf("ReadJournal() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, want := range []int64{1, 2, 3} {
		if entries[i].Seq != want {
			t.Errorf("entries[%d].Seq = %d, want %d", i, entries[i].Seq, want)
		}
	}
	if entries[1].Envelope.Kind != "navigation.open_drawer" {
		t.Errorf("entries[1].Kind = %q", entries[1].Envelope.Kind)
	}

	after, err := s.ReadJournal(ctx, 2)
	if err != nil {
		t.Fatalf("ReadJournal(2) failed: %v", err)
	}
	if len(after) != 1 || after[0].Seq != 3 {
		t.Errorf("ReadJournal(2) = %+v, want only seq 3", after)
	}

	last, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 3 {
		t.Errorf("LastSeq() = %d, want 3", last)
	}
}

func TestJournal_EmptyIsZero(t *testing.T) {
	s := createTestStore(t)

	last, err := s.LastSeq(context.Background())
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 0 {
		t.Errorf("LastSeq() = %d, want 0", last)
	}
	entries, err := s.ReadJournal(context.Background(), 0)
	if err != nil {
		t.Fatalf("ReadJournal() failed: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("ReadJournal() = %#v, want empty non-nil slice", entries)
	}
}

func TestJournal_DuplicateSeqRejected(t *testing.T) {
	s := createTestStore(t)

	appendAction(t, s, 1, action.OpenDrawer{})
	env, _ := action.Encode(action.CloseDrawer{})
	if err := s.Append(context.Background(), 1, env); err == nil {
		t.Error("expected error for duplicate seq")
	}
}

// TestJournal_ReplayRebuildsLiveSnapshot runs actions through a live engine
// journaling into the store, then replays the journal.
func TestJournal_ReplayRebuildsLiveSnapshot(t *testing.T) {
	s := createTestStore(t)
	initial := state.Initial("seller-1", "2026-10-16")

	e := engine.New(initial, engine.WithJournal(s))
	actions := []action.Action{
		action.AuthChecked{UserID: "u1"},
		action.CatalogLoaded{Items: nil},
		action.SearchChanged{Query: "pear"},
		action.OpenDrawer{},
		action.ShowSnackbar{},
	}
	for _, a := range actions {
		e.Dispatch(a)
	}
	e.Stop()
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	live := e.State()

	entries, err := s.ReadJournal(context.Background(), 0)
	if err != nil {
		t.Fatalf("ReadJournal() failed: %v", err)
	}
	if len(entries) != len(actions) {
		t.Fatalf("journaled %d entries, want %d", len(entries), len(actions))
	}
	replayed, err := engine.Replay(initial, entries, nil)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}

	if replayed.Seq != live.Seq || replayed.Products.Query != live.Products.Query ||
		replayed.User.ID != live.User.ID || replayed.Navigation.DrawerOpen != live.Navigation.DrawerOpen {
		t.Errorf("replayed snapshot differs: live seq %d query %q, replayed seq %d query %q",
			live.Seq, live.Products.Query, replayed.Seq, replayed.Products.Query)
	}
}
