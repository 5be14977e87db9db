package session

import (
	"context"
	"errors"
	"testing"

	deskerrors "github.com/sweetpotato0/deskflow/errors"
)

func TestTerminalStates(t *testing.T) {
	terminal := []State{StateResolved, StateTicketCreated, StateDeclined, StateRejected, StateFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []State{StateRefining, StateAnswering, StateValidating, StateSummarizing, StateAwaitingFeedback, StateEscalating, StateTicketPending}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestNewSessionDefaults(t *testing.T) {
	sess := New("")
	if sess.ID == "" {
		t.Fatal("expected generated id")
	}
	if sess.State != StateRefining {
		t.Fatalf("expected refining, got %s", sess.State)
	}
	if sess.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestPushQueryKeepsLastFive(t *testing.T) {
	sess := New("s1")
	queries := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, q := range queries {
		sess.PushQuery(q)
	}
	if len(sess.RecentQueries) != 5 {
		t.Fatalf("expected 5 recent queries, got %d", len(sess.RecentQueries))
	}
	if sess.RecentQueries[0] != "c" || sess.RecentQueries[4] != "g" {
		t.Fatalf("unexpected window %v", sess.RecentQueries)
	}
}

func TestSummaryComplete(t *testing.T) {
	cases := []struct {
		name    string
		summary *Summary
		want    bool
	}{
		{"nil", nil, false},
		{"full", &Summary{Headline: "h", Detail: "d", Sources: []string{"s"}}, true},
		{"missing headline", &Summary{Detail: "d", Sources: []string{"s"}}, false},
		{"missing detail", &Summary{Headline: "h", Sources: []string{"s"}}, false},
		{"no sources", &Summary{Headline: "h", Detail: "d"}, false},
		{"empty source entry", &Summary{Headline: "h", Detail: "d", Sources: []string{""}}, false},
	}
	for _, tc := range cases {
		if got := tc.summary.Complete(); got != tc.want {
			t.Errorf("%s: Complete() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	sess := New("s1")
	sess.PushQuery("original")
	sess.Record(EventQueryReceived, "original")
	sess.Summary = &Summary{Headline: "h", Detail: "d", Sources: []string{"src"}}
	sess.Feedback = &Feedback{Class: Satisfied, Rationale: "done"}

	clone := sess.Clone()
	clone.RecentQueries[0] = "mutated"
	clone.History[0].Detail = "mutated"
	clone.Summary.Sources[0] = "mutated"
	clone.Feedback.Class = Unsatisfied

	if sess.RecentQueries[0] != "original" {
		t.Fatal("recent queries aliased")
	}
	if sess.History[0].Detail != "original" {
		t.Fatal("history aliased")
	}
	if sess.Summary.Sources[0] != "src" {
		t.Fatal("summary sources aliased")
	}
	if sess.Feedback.Class != Satisfied {
		t.Fatal("feedback aliased")
	}
}

func TestManagerSingleFlight(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	_, release, err := m.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	if _, _, err := m.Acquire(ctx, "s1"); !errors.Is(err, deskerrors.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}

	// A different session is unaffected.
	_, release2, err := m.Acquire(ctx, "s2")
	if err != nil {
		t.Fatalf("Acquire s2 error: %v", err)
	}
	release2()

	release()
	if _, release, err = m.Acquire(ctx, "s1"); err != nil {
		t.Fatalf("re-Acquire after release error: %v", err)
	}
	release()
}

func TestManagerLookup(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()
	if _, err := m.Lookup(ctx, "missing"); !errors.Is(err, deskerrors.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	_, release, err := m.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	release()

	sess, err := m.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if sess.ID != "s1" {
		t.Fatalf("unexpected session %q", sess.ID)
	}
}

func TestLookupServesLastReleasedSnapshot(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	sess, release, err := m.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	sess.RefinedQuery = "mid-turn value"

	snap, err := m.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if snap.RefinedQuery != "" {
		t.Fatalf("lookup observed an unreleased turn: %q", snap.RefinedQuery)
	}

	release()
	snap, err = m.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if snap.RefinedQuery != "mid-turn value" {
		t.Fatalf("released state missing from snapshot: %q", snap.RefinedQuery)
	}
}

func TestLookupConcurrentWithTurns(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			sess, release, err := m.Acquire(ctx, "s1")
			if err != nil {
				t.Errorf("Acquire error: %v", err)
				return
			}
			sess.PushQuery("q")
			sess.Record(EventQueryReceived, "q")
			release()
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		sess, err := m.Lookup(ctx, "s1")
		if err != nil {
			continue
		}
		for _, e := range sess.History {
			_ = e.Detail
		}
		if len(sess.RecentQueries) > 5 {
			t.Fatalf("recent-query window overflowed: %d", len(sess.RecentQueries))
		}
	}
}

func TestManagerEvictsTerminalSessions(t *testing.T) {
	store := NewInMemoryStore()
	m := NewManager(store)
	ctx := context.Background()

	sess, release, err := m.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	sess.SetState(StateResolved)
	release()

	if m.Len() != 0 {
		t.Fatalf("terminal session must leave the live set, Len = %d", m.Len())
	}
	restored, err := m.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if restored.State != StateResolved {
		t.Fatalf("expected resolved snapshot from the store, got %s", restored.State)
	}

	// Without a store the evicted session is gone for good.
	m = NewManager(nil)
	sess, release, err = m.Acquire(ctx, "s2")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	sess.SetState(StateDeclined)
	release()
	if _, err := m.Lookup(ctx, "s2"); !errors.Is(err, deskerrors.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerRestoresFromStore(t *testing.T) {
	store := NewInMemoryStore()
	saved := New("s1")
	saved.SetState(StateAwaitingFeedback)
	saved.RefinedQuery = "why is the VPN slow?"
	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	m := NewManager(store)
	sess, release, err := m.Acquire(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer release()

	if sess.State != StateAwaitingFeedback {
		t.Fatalf("expected restored state, got %s", sess.State)
	}
	if sess.RefinedQuery != "why is the VPN slow?" {
		t.Fatalf("expected restored refined query, got %q", sess.RefinedQuery)
	}
}

func TestManagerPersistsOnRelease(t *testing.T) {
	store := NewInMemoryStore()
	m := NewManager(store)

	sess, release, err := m.Acquire(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	sess.SetState(StateAnswering)
	release()

	snapshot, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if snapshot.State != StateAnswering {
		t.Fatalf("expected persisted state answering, got %s", snapshot.State)
	}
}

func TestInMemoryStoreRejectsInvalidSnapshot(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.Save(context.Background(), nil); !errors.Is(err, deskerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil session, got %v", err)
	}
	if err := store.Save(context.Background(), &Session{}); !errors.Is(err, deskerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty id, got %v", err)
	}
}
