package events

import (
	"time"

	"github.com/geethasandesh/articket/internal/authz"
	"github.com/geethasandesh/articket/internal/domain"
)

// EventType distinguishes a ticket's first appearance from later mutations.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
)

// ChangeKind names the mutation behind an event, for the notifier and logs.
type ChangeKind string

const (
	ChangeSnapshot      ChangeKind = "snapshot"
	ChangeCreated       ChangeKind = "ticket_created"
	ChangeStatus        ChangeKind = "status_changed"
	ChangeAssigned      ChangeKind = "ticket_assigned"
	ChangeUnassigned    ChangeKind = "ticket_unassigned"
	ChangeResponseAdded ChangeKind = "response_added"
	ChangeEdited        ChangeKind = "ticket_edited"
	ChangeDeleted       ChangeKind = "ticket_deleted"
)

// TicketEvent carries the full post-mutation ticket state. Gap is set on the
// first event delivered after a slow subscriber's buffer overflowed, so the
// consumer knows intermediate states were skipped.
type TicketEvent struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	Change    ChangeKind       `json:"change"`
	Ticket    domain.Ticket    `json:"ticket"`
	Response  *domain.Response `json:"response,omitempty"`
	Gap       bool             `json:"gap,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// FilterSpec scopes a subscription. Caller scoping applies the same
// visibility rules as point-in-time listing; empty status/priority lists
// admit everything.
type FilterSpec struct {
	Caller     domain.Caller
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
}

// Admits reports whether the subscriber should observe the ticket.
func (f FilterSpec) Admits(ticket *domain.Ticket) bool {
	if !authz.CanView(f.Caller, ticket) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, ticket.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, ticket.Priority) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range list {
		if p == priority {
			return true
		}
	}
	return false
}
