package ticket

import (
	"errors"
	"testing"

	errorskg "github.com/sweetpotato0/deskflow/errors"
)

func TestValidCategory(t *testing.T) {
	for _, c := range Categories() {
		if !ValidCategory(c) {
			t.Errorf("%q should be valid", c)
		}
	}
	if ValidCategory("Coffee Machine") {
		t.Error("unknown category accepted")
	}
	if ValidCategory("network issue") {
		t.Error("category matching must be exact, not case-insensitive")
	}
}

func TestValidate(t *testing.T) {
	good := &Ticket{IssueSummary: "VPN drops every hour", Category: CategoryNetwork}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid ticket rejected: %v", err)
	}

	cases := []*Ticket{
		nil,
		{Category: CategoryNetwork},
		{IssueSummary: "   ", Category: CategoryNetwork},
		{IssueSummary: "something", Category: "Coffee Machine"},
	}
	for i, tc := range cases {
		if err := tc.Validate(); !errors.Is(err, errorskg.ErrInvalidTicketRequest) {
			t.Errorf("case %d: expected ErrInvalidTicketRequest, got %v", i, err)
		}
	}
}

func TestFormatID(t *testing.T) {
	if got := FormatID(1); got != "TCK-0001" {
		t.Fatalf("FormatID(1) = %q", got)
	}
	if got := FormatID(42); got != "TCK-0042" {
		t.Fatalf("FormatID(42) = %q", got)
	}
	if got := FormatID(12345); got != "TCK-12345" {
		t.Fatalf("FormatID(12345) = %q", got)
	}
}
