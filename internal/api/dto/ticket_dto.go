package dto

import (
	"time"

	"github.com/geethasandesh/articket/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject      string                `json:"subject"`
	Description  string                `json:"description"`
	Category     string                `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	Project      string                `json:"project"`
	CustomerName string                `json:"customer_name"`
	Attachments  []AttachmentRequest   `json:"attachments"`
}

// AttachmentRequest describes attachment metadata input.
type AttachmentRequest struct {
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AddResponseRequest payload.
type AddResponseRequest struct {
	Message string `json:"message"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeEmail string `json:"assignee_email"`
}

// AdminUpdateRequest patches administrative ticket fields.
type AdminUpdateRequest struct {
	Status   *domain.TicketStatus   `json:"status"`
	Priority *domain.TicketPriority `json:"priority"`
	Starred  *bool                  `json:"starred"`
}

// TicketSummary is the listing shape.
type TicketSummary struct {
	ID           string                `json:"id"`
	TicketNumber string                `json:"ticket_number"`
	Subject      string                `json:"subject"`
	Category     string                `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	Project      string                `json:"project"`
	Status       domain.TicketStatus   `json:"status"`
	CustomerName string                `json:"customer_name"`
	Starred      bool                  `json:"starred"`
	AssignedTo   *AssigneeResponse     `json:"assigned_to"`
	CreatedAt    time.Time             `json:"created_at"`
	LastUpdated  time.Time             `json:"last_updated"`
}

// TicketDetailResponse provides the full ticket including conversation.
type TicketDetailResponse struct {
	TicketSummary
	Description     string               `json:"description"`
	CreatedByEmail  string               `json:"created_by_email"`
	CreatedByRole   domain.Role          `json:"created_by_role"`
	AssignedByEmail *string              `json:"assigned_by_email"`
	Attachments     []AttachmentResponse `json:"attachments"`
	Responses       []ResponseEntry      `json:"responses"`
}

// AssigneeResponse mirrors the assignment record.
type AssigneeResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// ResponseEntry is one conversation entry.
type ResponseEntry struct {
	Message     string      `json:"message"`
	AuthorEmail string      `json:"author_email"`
	AuthorRole  domain.Role `json:"author_role"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TicketEventResponse is the stream payload for one delivered event.
type TicketEventResponse struct {
	ID        string               `json:"id"`
	Type      string               `json:"type"`
	Change    string               `json:"change"`
	Ticket    TicketDetailResponse `json:"ticket"`
	Response  *ResponseEntry       `json:"response,omitempty"`
	Gap       bool                 `json:"gap,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}
