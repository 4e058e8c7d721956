package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/geethasandesh/articket/internal/authz"
	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/internal/events"
	"github.com/geethasandesh/articket/internal/repository"
	"github.com/geethasandesh/articket/internal/sequence"
	apperrors "github.com/geethasandesh/articket/pkg/util"
)

// TicketService coordinates ticket lifecycle workflows.
type TicketService struct {
	tickets  repository.TicketRepository
	sequence *sequence.Generator
	broker   *events.Broker
	locks    *TicketLocks
	logger   *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Sequence   *sequence.Generator
	Broker     *events.Broker
	Locks      *TicketLocks
	Logger     *zap.Logger
}

// CreateTicketInput describes a ticket submission.
type CreateTicketInput struct {
	Subject      string
	Description  string
	Category     string
	Priority     domain.TicketPriority
	Project      string
	CustomerName string
	Attachments  []domain.AttachmentMeta
}

// ListFilter describes point-in-time listing and subscription scoping.
type ListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Project    *string
	Starred    *bool
	SearchTerm *string
	Limit      int
	Offset     int
}

// AdminUpdateInput is the admin edit surface: status, priority, starred.
type AdminUpdateInput struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Starred  *bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:  deps.TicketRepo,
		sequence: deps.Sequence,
		broker:   deps.Broker,
		locks:    deps.Locks,
		logger:   deps.Logger,
	}
}

// CreateTicket mints a ticket number and commits the new ticket. Creation
// either fully succeeds (the caller gets a ticket number) or fully fails; a
// number consumed by a failed ticket write leaves a gap in the sequence,
// which is documented, acceptable behavior.
func (s *TicketService) CreateTicket(ctx context.Context, caller domain.Caller, input CreateTicketInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, apperrors.NewValidationError("subject and description required", nil)
	}
	if caller.Email == "" {
		return nil, apperrors.NewValidationError("requester identity required", nil)
	}
	project := strings.TrimSpace(input.Project)
	if project == "" {
		project = caller.Project
	}
	if project == "" {
		return nil, apperrors.NewValidationError("project required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = domain.CategoryIncident
	}
	customerName := strings.TrimSpace(input.CustomerName)
	if customerName == "" {
		customerName = authz.AssigneeName(caller.Email)
	}

	number, err := s.sequence.Next(ctx, category)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		TicketNumber:   number,
		Subject:        subject,
		Description:    description,
		Category:       category,
		Priority:       priority,
		Project:        project,
		Status:         domain.TicketStatusOpen,
		CustomerName:   customerName,
		CreatedByEmail: caller.Email,
		CreatedByRole:  caller.Role,
		Attachments:    input.Attachments,
	}

	unlock := s.locks.Lock(ticket.ID)
	defer unlock()

	if err := s.tickets.Create(ctx, ticket); err != nil {
		// The consumed sequence number is not returned; see above.
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.broker.Publish(ctx, events.TicketEvent{
		Type:   events.EventCreated,
		Change: events.ChangeCreated,
		Ticket: *ticket.Clone(),
	})
	return ticket, nil
}

// GetTicket returns the full current ticket including its conversation.
func (s *TicketService) GetTicket(ctx context.Context, caller domain.Caller, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapTicketErr(id, err)
	}
	if !authz.CanView(caller, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return authz.VisibleFields(caller, ticket), nil
}

// ListTickets returns a point-in-time listing scoped to the caller.
func (s *TicketService) ListTickets(ctx context.Context, caller domain.Caller, filter ListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Starred:    filter.Starred,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if caller.Role == domain.RoleAdmin {
		// admins bypass project scoping; an explicit filter narrows
		if filter.Project != nil {
			repoFilter.Projects = []string{*filter.Project}
		}
	} else {
		repoFilter.Projects = caller.Projects()
		if len(repoFilter.Projects) == 0 {
			return []domain.Ticket{}, nil
		}
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// SetStatus updates the ticket status. Any direction is allowed; transitions
// are caller-triggered only.
func (s *TicketService) SetStatus(ctx context.Context, caller domain.Caller, id string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapTicketErr(id, err)
	}
	if !authz.CanView(caller, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	status := newStatus
	updated, err := s.tickets.ApplyMutation(ctx, id, domain.TicketMutation{Status: &status})
	if err != nil {
		return nil, mapTicketErr(id, err)
	}

	s.broker.Publish(ctx, events.TicketEvent{
		Type:   events.EventUpdated,
		Change: events.ChangeStatus,
		Ticket: *updated.Clone(),
	})
	return updated, nil
}

// AppendResponse appends one immutable conversation entry. The entry and the
// LastUpdated bump commit together.
func (s *TicketService) AppendResponse(ctx context.Context, caller domain.Caller, id, message string) (*domain.Ticket, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message required", nil)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapTicketErr(id, err)
	}
	if !authz.CanView(caller, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	entry := domain.Response{
		Message:     message,
		AuthorEmail: caller.Email,
		AuthorRole:  caller.Role,
		CreatedAt:   time.Now().UTC(),
	}
	updated, err := s.tickets.AppendResponse(ctx, id, entry)
	if err != nil {
		return nil, mapTicketErr(id, err)
	}

	s.broker.Publish(ctx, events.TicketEvent{
		Type:     events.EventUpdated,
		Change:   events.ChangeResponseAdded,
		Ticket:   *updated.Clone(),
		Response: &entry,
	})
	return updated, nil
}

// AdminUpdate patches status/priority/starred. Admin role only.
func (s *TicketService) AdminUpdate(ctx context.Context, caller domain.Caller, id string, input AdminUpdateInput) (*domain.Ticket, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
	}
	mut := domain.TicketMutation{
		Status:   input.Status,
		Priority: input.Priority,
		Starred:  input.Starred,
	}
	if mut.Empty() {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	updated, err := s.tickets.ApplyMutation(ctx, id, mut)
	if err != nil {
		return nil, mapTicketErr(id, err)
	}

	s.broker.Publish(ctx, events.TicketEvent{
		Type:   events.EventUpdated,
		Change: events.ChangeEdited,
		Ticket: *updated.Clone(),
	})
	return updated, nil
}

// DeleteTicket removes a ticket. Administrative override outside the normal
// coordination path; the consumed ticket number is never reused. The removal
// is announced with the ticket's last known state so live views drop the row
// instead of showing it until some other mutation arrives.
func (s *TicketService) DeleteTicket(ctx context.Context, caller domain.Caller, id string) error {
	if caller.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return mapTicketErr(id, err)
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return mapTicketErr(id, err)
	}

	// The announcement stamp must move past the stored one or the delivery
	// watermark would treat the event as already seen.
	final := ticket.Clone()
	stamp := time.Now()
	if !stamp.After(final.LastUpdated) {
		stamp = final.LastUpdated.Add(time.Microsecond)
	}
	final.LastUpdated = stamp

	s.broker.Publish(ctx, events.TicketEvent{
		Type:   events.EventUpdated,
		Change: events.ChangeDeleted,
		Ticket: *final,
	})
	return nil
}

// snapshotPageSize bounds one snapshot read; the snapshot itself is unbounded.
const snapshotPageSize = 100

// Subscribe opens a live event stream scoped to the caller and filter. The
// stream begins with the complete current matching snapshot; the filter's
// paging fields are ignored here because a truncated snapshot would be an
// undetectable gap.
func (s *TicketService) Subscribe(ctx context.Context, caller domain.Caller, filter ListFilter) *events.Subscription {
	spec := events.FilterSpec{
		Caller:     caller,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
	}
	snapshot := func(snapCtx context.Context) ([]domain.Ticket, error) {
		page := filter
		page.Limit = snapshotPageSize
		page.Offset = 0
		var all []domain.Ticket
		for {
			tickets, err := s.ListTickets(snapCtx, caller, page)
			if err != nil {
				return nil, err
			}
			all = append(all, tickets...)
			if len(tickets) < page.Limit {
				return all, nil
			}
			page.Offset += page.Limit
		}
	}
	return s.broker.Subscribe(ctx, spec, snapshot)
}

func mapTicketErr(id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return apperrors.MapError(err)
}
