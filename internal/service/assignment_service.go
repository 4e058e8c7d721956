package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geethasandesh/articket/internal/authz"
	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/internal/events"
	"github.com/geethasandesh/articket/internal/repository"
	apperrors "github.com/geethasandesh/articket/pkg/util"
)

// AssignmentService arbitrates who may claim, reassign, or release a ticket.
// The assignment state machine is Unassigned -> Assigned -> Unassigned;
// reassignment runs the release step before the claim step so every change
// produces its own audit entry.
type AssignmentService struct {
	tickets repository.TicketRepository
	members repository.MembershipRepository
	broker  *events.Broker
	locks   *TicketLocks
	logger  *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	Members    repository.MembershipRepository
	Broker     *events.Broker
	Locks      *TicketLocks
	Logger     *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets: deps.TicketRepo,
		members: deps.Members,
		broker:  deps.Broker,
		locks:   deps.Locks,
		logger:  deps.Logger,
	}
}

// Assign sets the ticket's assignee after the policy check. Rejections carry
// no side effect; an accepted assignment commits the mutation, then appends
// the audit entry and notifies best-effort.
func (s *AssignmentService) Assign(ctx context.Context, caller domain.Caller, ticketID, assigneeEmail string) (*domain.Ticket, error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(ticketID, err)
	}
	if !authz.CanView(caller, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	members, err := s.members.ProjectMembers(ctx, ticket.Project)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := authz.CanAssign(caller, ticket, assigneeEmail, members); err != nil {
		return nil, err
	}
	if ticket.AssignedTo != nil && strings.EqualFold(ticket.AssignedTo.Email, assigneeEmail) {
		return nil, apperrors.NewConflict("ticket is already assigned to this user", map[string]any{
			"assignee": assigneeEmail,
		})
	}

	if ticket.AssignedTo != nil {
		if _, err := s.release(ctx, caller, ticketID); err != nil {
			return nil, err
		}
	}

	assignee := domain.Assignee{
		Name:  authz.AssigneeName(assigneeEmail),
		Email: assigneeEmail,
	}
	assignedBy := caller.Email
	updated, err := s.tickets.ApplyMutation(ctx, ticketID, domain.TicketMutation{
		AssignedTo:      &assignee,
		AssignedByEmail: &assignedBy,
	})
	if err != nil {
		return nil, mapTicketErr(ticketID, err)
	}

	if latest := s.appendAudit(ctx, ticketID, caller,
		fmt.Sprintf("Ticket assigned to %s by %s", assignee.Name, caller.Email)); latest != nil {
		updated = latest
	}

	s.broker.Publish(ctx, events.TicketEvent{
		Type:   events.EventUpdated,
		Change: events.ChangeAssigned,
		Ticket: *updated.Clone(),
	})
	return updated, nil
}

// Unassign releases the current assignment. Permitted to any caller who can
// see the ticket.
func (s *AssignmentService) Unassign(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(ticketID, err)
	}
	if !authz.CanView(caller, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if err := authz.CanUnassign(caller, ticket); err != nil {
		return nil, err
	}

	return s.release(ctx, caller, ticketID)
}

// release clears the assignment, appends the audit entry, and publishes.
// Callers hold the ticket lock.
func (s *AssignmentService) release(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	updated, err := s.tickets.ApplyMutation(ctx, ticketID, domain.TicketMutation{
		ClearAssignee:   true,
		ClearAssignedBy: true,
	})
	if err != nil {
		return nil, mapTicketErr(ticketID, err)
	}

	if latest := s.appendAudit(ctx, ticketID, caller,
		fmt.Sprintf("Ticket unassigned by %s", caller.Email)); latest != nil {
		updated = latest
	}

	s.broker.Publish(ctx, events.TicketEvent{
		Type:   events.EventUpdated,
		Change: events.ChangeUnassigned,
		Ticket: *updated.Clone(),
	})
	return updated, nil
}

// appendAudit writes the system-authored conversation entry for an
// assignment change. Failure does not roll the assignment back; the append
// is retried once, then logged for alerting.
func (s *AssignmentService) appendAudit(ctx context.Context, ticketID string, caller domain.Caller, message string) *domain.Ticket {
	entry := domain.Response{
		Message:     message,
		AuthorEmail: caller.Email,
		AuthorRole:  domain.RoleSystem,
		CreatedAt:   time.Now().UTC(),
	}
	updated, err := s.tickets.AppendResponse(ctx, ticketID, entry)
	if err == nil {
		return updated
	}
	updated, retryErr := s.tickets.AppendResponse(ctx, ticketID, entry)
	if retryErr == nil {
		return updated
	}
	s.logger.Error("assignment audit entry lost",
		zap.String("ticket_id", ticketID),
		zap.String("message", message),
		zap.Error(retryErr))
	return nil
}
