package ticket

import (
	"context"
	"fmt"
	"strings"
	"time"

	errorskg "github.com/sweetpotato0/deskflow/errors"
)

// Category classifies a support ticket for routing.
type Category string

const (
	CategoryNetwork  Category = "Network Issue"
	CategoryPassword Category = "Password Reset"
	CategorySoftware Category = "Software Installation"
	CategoryHardware Category = "Hardware Problem"
)

// Categories lists the routing categories a ticket may carry.
func Categories() []Category {
	return []Category{CategoryNetwork, CategoryPassword, CategorySoftware, CategoryHardware}
}

// ValidCategory reports whether c is a known routing category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryNetwork, CategoryPassword, CategorySoftware, CategoryHardware:
		return true
	}
	return false
}

// Ticket is an escalation record created after a user confirms that the
// assistant could not resolve their issue.
type Ticket struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"session_id"`
	IssueSummary      string    `json:"issue_summary"`
	Category          Category  `json:"category"`
	Status            string    `json:"status"`
	RefinedQuery      string    `json:"refined_query"`
	Answer            string    `json:"answer"`
	FeedbackRationale string    `json:"feedback_rationale,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// StatusOpen is the initial status of every ticket.
const StatusOpen = "Open"

// Validate checks that the ticket carries enough to be filed.
func (t *Ticket) Validate() error {
	if t == nil {
		return fmt.Errorf("ticket cannot be nil: %w", errorskg.ErrInvalidTicketRequest)
	}
	if strings.TrimSpace(t.IssueSummary) == "" {
		return fmt.Errorf("issue summary is required: %w", errorskg.ErrInvalidTicketRequest)
	}
	if !ValidCategory(t.Category) {
		return fmt.Errorf("unknown category %q: %w", t.Category, errorskg.ErrInvalidTicketRequest)
	}
	return nil
}

// FormatID renders a sequence number as a display ticket ID, e.g. TCK-0007.
func FormatID(seq int) string {
	return fmt.Sprintf("TCK-%04d", seq)
}

// Store persists tickets. Create assigns the ID from a store-managed
// sequence and sets CreatedAt and Status before saving.
type Store interface {
	Create(ctx context.Context, t *Ticket) error
	Get(ctx context.Context, id string) (*Ticket, error)
	List(ctx context.Context) ([]*Ticket, error)
}
