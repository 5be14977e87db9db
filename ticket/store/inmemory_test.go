package store

import (
	"context"
	"errors"
	"testing"

	errorskg "github.com/sweetpotato0/deskflow/errors"
	"github.com/sweetpotato0/deskflow/ticket"
)

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	first := &ticket.Ticket{SessionID: "s1", IssueSummary: "VPN drops", Category: ticket.CategoryNetwork}
	second := &ticket.Ticket{SessionID: "s2", IssueSummary: "printer offline", Category: ticket.CategoryHardware}

	if err := s.Create(ctx, first); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.Create(ctx, second); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if first.ID != "TCK-0001" || second.ID != "TCK-0002" {
		t.Fatalf("unexpected IDs %q, %q", first.ID, second.ID)
	}
	if first.Status != ticket.StatusOpen {
		t.Fatalf("expected status %q, got %q", ticket.StatusOpen, first.Status)
	}
	if first.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestCreateRejectsInvalidTicket(t *testing.T) {
	s := NewInMemoryStore()
	err := s.Create(context.Background(), &ticket.Ticket{IssueSummary: "", Category: ticket.CategoryNetwork})
	if !errors.Is(err, errorskg.ErrInvalidTicketRequest) {
		t.Fatalf("expected ErrInvalidTicketRequest, got %v", err)
	}
	if s.Count() != 0 {
		t.Fatalf("invalid ticket was stored, count %d", s.Count())
	}
}

func TestGetReturnsClone(t *testing.T) {
	s := NewInMemoryStore()
	tk := &ticket.Ticket{SessionID: "s1", IssueSummary: "VPN drops", Category: ticket.CategoryNetwork}
	if err := s.Create(context.Background(), tk); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := s.Get(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	got.IssueSummary = "mutated"

	again, err := s.Get(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if again.IssueSummary != "VPN drops" {
		t.Fatal("stored ticket aliased by Get result")
	}
}

func TestGetUnknownID(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := s.Get(context.Background(), "TCK-9999"); !errors.Is(err, errorskg.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersByCreation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	for _, summary := range []string{"first", "second", "third"} {
		tk := &ticket.Ticket{SessionID: "s1", IssueSummary: summary, Category: ticket.CategorySoftware}
		if err := s.Create(ctx, tk); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	out, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(out))
	}
	for i, want := range []string{"TCK-0001", "TCK-0002", "TCK-0003"} {
		if out[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, out[i].ID)
		}
	}
}
