package domain

import "time"

// Response is one immutable conversation entry on a ticket. Entries are
// append-only; ordering is append order, never client timestamp order.
type Response struct {
	Message     string    `json:"message"`
	AuthorEmail string    `json:"authorEmail"`
	AuthorRole  Role      `json:"authorRole"`
	CreatedAt   time.Time `json:"createdAt"`
}
