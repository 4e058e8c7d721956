package authz

import (
	"strings"

	"github.com/geethasandesh/articket/internal/domain"
	apperrors "github.com/geethasandesh/articket/pkg/util"
)

// CanAssign decides whether caller may assign the ticket to assigneeEmail.
// It is a pure policy function: no I/O, no mutation. members is the ticket
// project's membership list.
//
// Rules:
//   - ticket created by a client, caller not a manager: self-assignment only;
//     once the ticket is assigned to someone else the caller may not touch it.
//   - ticket created by an employee, or caller is a project manager or admin:
//     any employee of the same project may be assigned; a manager may also
//     assign to themself.
func CanAssign(caller domain.Caller, ticket *domain.Ticket, assigneeEmail string, members []domain.ProjectMember) error {
	assigneeEmail = strings.TrimSpace(assigneeEmail)
	if assigneeEmail == "" {
		return apperrors.NewValidationError("assignee email required", nil)
	}

	if !caller.IsManager() && ticket.CreatedByRole == domain.RoleClient {
		if !strings.EqualFold(assigneeEmail, caller.Email) {
			return apperrors.NewForbidden("tickets raised by clients can only be self-assigned")
		}
		if ticket.AssignedTo != nil {
			if strings.EqualFold(ticket.AssignedTo.Email, caller.Email) {
				return apperrors.NewConflict("ticket is already assigned to you", nil)
			}
			return apperrors.NewForbidden("ticket is already assigned to someone else")
		}
		return nil
	}

	if caller.IsManager() && strings.EqualFold(assigneeEmail, caller.Email) {
		return nil
	}
	if strings.EqualFold(assigneeEmail, caller.Email) {
		return nil
	}
	if !isEmployeeMember(members, assigneeEmail) {
		return apperrors.NewForbidden("assignee is not an employee of the ticket's project")
	}
	return nil
}

// CanUnassign decides whether caller may release the ticket's assignment.
// Any caller who can see the ticket may release it; the looseness is
// deliberate rather than silently hardened.
func CanUnassign(caller domain.Caller, ticket *domain.Ticket) error {
	if ticket.AssignedTo == nil {
		return apperrors.NewConflict("ticket is not assigned", nil)
	}
	return nil
}

// AssigneeName derives the display name for an assignee: the local part of
// the email address.
func AssigneeName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

func isEmployeeMember(members []domain.ProjectMember, email string) bool {
	for _, member := range members {
		if !strings.EqualFold(member.Email, email) {
			continue
		}
		if member.Status == domain.MemberStatusInactive {
			return false
		}
		return member.Role == domain.RoleEmployee
	}
	return false
}
