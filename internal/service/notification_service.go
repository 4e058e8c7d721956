package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/geethasandesh/articket/internal/config"
	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/internal/events"
	"github.com/geethasandesh/articket/internal/notify"
	"github.com/geethasandesh/articket/internal/repository"
)

// NotificationService emails every member of a ticket's project when the
// ticket is created, assigned, or answered. Delivery is best-effort and
// never fails the triggering operation.
type NotificationService struct {
	broker  *events.Broker
	members repository.MembershipRepository
	mailer  *notify.Mailer
	logger  *zap.Logger
	cfg     config.NotifyConfig
}

// NewNotificationService creates the service.
func NewNotificationService(broker *events.Broker, members repository.MembershipRepository, mailer *notify.Mailer, logger *zap.Logger, cfg config.NotifyConfig) *NotificationService {
	return &NotificationService{
		broker:  broker,
		members: members,
		mailer:  mailer,
		logger:  logger,
		cfg:     cfg,
	}
}

// RegisterHandlers subscribes to the event stream.
func (n *NotificationService) RegisterHandlers() {
	if n.broker == nil {
		return
	}
	n.broker.SubscribeFunc(n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, ev events.TicketEvent) {
	switch ev.Change {
	case events.ChangeCreated, events.ChangeAssigned, events.ChangeResponseAdded:
	default:
		return
	}

	ticket := ev.Ticket
	n.logger.Info("ticket event",
		zap.String("change", string(ev.Change)),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("project", ticket.Project))

	if !n.mailer.Enabled() {
		return
	}

	recipients, err := n.recipients(ctx, ticket.Project)
	if err != nil {
		n.logger.Warn("could not resolve notification recipients",
			zap.String("project", ticket.Project), zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		return
	}

	subject := fmt.Sprintf("[%s] Ticket #%s - %s (%s)",
		ticket.Project, ticket.TicketNumber, ticket.Subject, ticket.Status)
	body := n.body(ev)

	if err := n.mailer.Send(ctx, recipients, subject, body); err != nil {
		n.logger.Warn("notification email failed",
			zap.String("ticket_number", ticket.TicketNumber), zap.Error(err))
	}
}

func (n *NotificationService) recipients(ctx context.Context, project string) ([]string, error) {
	members, err := n.members.ProjectMembers(ctx, project)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(members))
	for _, member := range members {
		if member.Status == domain.MemberStatusInactive || member.Email == "" {
			continue
		}
		emails = append(emails, member.Email)
	}
	return emails, nil
}

func (n *NotificationService) body(ev events.TicketEvent) string {
	ticket := ev.Ticket
	assignedTo := "-"
	if ticket.AssignedTo != nil {
		assignedTo = ticket.AssignedTo.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ticket:      %s\n", ticket.TicketNumber)
	fmt.Fprintf(&b, "Subject:     %s\n", ticket.Subject)
	fmt.Fprintf(&b, "Status:      %s\n", ticket.Status)
	fmt.Fprintf(&b, "Priority:    %s\n", ticket.Priority)
	fmt.Fprintf(&b, "Category:    %s\n", ticket.Category)
	fmt.Fprintf(&b, "Project:     %s\n", ticket.Project)
	fmt.Fprintf(&b, "Assigned to: %s\n", assignedTo)
	fmt.Fprintf(&b, "Requester:   %s (%s)\n", ticket.CustomerName, ticket.CreatedByEmail)
	if ev.Change == events.ChangeResponseAdded && ev.Response != nil {
		fmt.Fprintf(&b, "\nNew response from %s:\n%s\n", ev.Response.AuthorEmail, ev.Response.Message)
	} else {
		fmt.Fprintf(&b, "\n%s\n", ticket.Description)
	}
	if n.cfg.BaseURL != "" {
		fmt.Fprintf(&b, "\n%s/tickets/%s\n", strings.TrimRight(n.cfg.BaseURL, "/"), ticket.ID)
	}
	return b.String()
}
