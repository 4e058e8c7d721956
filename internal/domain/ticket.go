package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Transitions are
// caller-triggered in either direction; no forward-only rule is enforced.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// KnownStatuses lists every accepted status value.
var KnownStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether the status is one of the known values.
func (s TicketStatus) Valid() bool {
	for _, known := range KnownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// Valid reports whether the priority is one of the known values.
func (p TicketPriority) Valid() bool {
	return p == TicketPriorityLow || p == TicketPriorityMedium || p == TicketPriorityHigh
}

// Well-known categories. Each owns an independent number sequence; any other
// category text is stored verbatim and numbered from the Incident sequence.
const (
	CategoryIncident = "Incident"
	CategoryService  = "Service"
	CategoryChange   = "Change"
)

// Assignee identifies the single user currently responsible for a ticket.
type Assignee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AttachmentMeta describes an attachment by metadata only. Blob storage is
// owned by an external collaborator; this core never reads file contents.
type AttachmentMeta struct {
	Name      string `json:"name"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Ticket is the aggregate for one support request.
type Ticket struct {
	ID              string
	TicketNumber    string
	Subject         string
	Description     string
	Category        string
	Priority        TicketPriority
	Project         string
	Status          TicketStatus
	CustomerName    string
	CreatedByEmail  string
	CreatedByRole   Role
	Starred         bool
	AssignedTo      *Assignee
	AssignedByEmail *string
	Attachments     []AttachmentMeta
	Responses       []Response
	CreatedAt       time.Time
	LastUpdated     time.Time
}

// Clone returns a deep copy so callers can hand tickets across goroutine
// boundaries without sharing mutable state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	copied := *t
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		copied.AssignedTo = &assignee
	}
	if t.AssignedByEmail != nil {
		email := *t.AssignedByEmail
		copied.AssignedByEmail = &email
	}
	if len(t.Attachments) > 0 {
		copied.Attachments = append([]AttachmentMeta(nil), t.Attachments...)
	}
	if len(t.Responses) > 0 {
		copied.Responses = append([]Response(nil), t.Responses...)
	}
	return &copied
}

// TicketMutation is a partial field update. Nil pointers leave the field
// untouched; the store applies last-write-wins per field and re-stamps
// LastUpdated on every accepted mutation.
type TicketMutation struct {
	Status          *TicketStatus
	Priority        *TicketPriority
	Starred         *bool
	AssignedTo      *Assignee
	ClearAssignee   bool
	AssignedByEmail *string
	ClearAssignedBy bool
}

// Empty reports whether the mutation would change nothing.
func (m TicketMutation) Empty() bool {
	return m.Status == nil && m.Priority == nil && m.Starred == nil &&
		m.AssignedTo == nil && !m.ClearAssignee &&
		m.AssignedByEmail == nil && !m.ClearAssignedBy
}
