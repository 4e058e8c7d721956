package authz

import "github.com/geethasandesh/articket/internal/domain"

// CanView reports whether the caller may observe the ticket. Admins bypass
// project scoping entirely; everyone else sees tickets in their project(s).
func CanView(caller domain.Caller, ticket *domain.Ticket) bool {
	if caller.Role == domain.RoleAdmin {
		return true
	}
	for _, project := range caller.Projects() {
		if project == ticket.Project {
			return true
		}
	}
	return false
}

// VisibleTickets returns the subset of tickets the caller may observe. It is
// side-effect-free: the input slice and its tickets are never mutated, so it
// can run on every fan-out delivery against a shared snapshot.
func VisibleTickets(caller domain.Caller, tickets []domain.Ticket) []domain.Ticket {
	visible := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if CanView(caller, &tickets[i]) {
			visible = append(visible, tickets[i])
		}
	}
	return visible
}

// VisibleFields returns the fields of a ticket the caller may see. All
// project members see full ticket content, so redaction is a no-op clone;
// the seam exists so field-level rules have one place to land.
func VisibleFields(caller domain.Caller, ticket *domain.Ticket) *domain.Ticket {
	return ticket.Clone()
}
