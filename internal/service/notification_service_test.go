package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/geethasandesh/articket/internal/config"
	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/internal/events"
	"github.com/geethasandesh/articket/internal/notify"
)

func newTestNotificationService(cfg config.NotifyConfig) *NotificationService {
	members := &memMembers{byProject: map[string][]domain.ProjectMember{
		"VMM": {
			{Name: "alice", Email: "alice@x.com", Role: domain.RoleEmployee, Status: domain.MemberStatusActive},
			{Name: "bob", Email: "bob@x.com", Role: domain.RoleEmployee, Status: domain.MemberStatusActive},
			{Name: "carol", Email: "carol@x.com", Role: domain.RoleEmployee, Status: domain.MemberStatusInactive},
			{Name: "ghost", Email: "", Role: domain.RoleEmployee, Status: domain.MemberStatusActive},
		},
	}}
	return NewNotificationService(nil, members, notify.NewMailer(cfg), zap.NewNop(), cfg)
}

func TestRecipientsSkipInactiveAndEmptyAddresses(t *testing.T) {
	svc := newTestNotificationService(config.NotifyConfig{})

	emails, err := svc.recipients(context.Background(), "VMM")
	if err != nil {
		t.Fatalf("recipients: %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("len(recipients) = %d, want 2", len(emails))
	}
	if emails[0] != "alice@x.com" || emails[1] != "bob@x.com" {
		t.Errorf("recipients = %v, want alice and bob only", emails)
	}
}

func TestNotificationBody(t *testing.T) {
	svc := newTestNotificationService(config.NotifyConfig{BaseURL: "https://portal.example.com/"})

	ticket := domain.Ticket{
		ID:             "t-1",
		TicketNumber:   "IN100000",
		Subject:        "VPN down",
		Description:    "cannot connect since 9am",
		Category:       domain.CategoryIncident,
		Priority:       domain.TicketPriorityHigh,
		Project:        "VMM",
		Status:         domain.TicketStatusOpen,
		CustomerName:   "pri",
		CreatedByEmail: "pri@client.com",
		AssignedTo:     &domain.Assignee{Name: "bob", Email: "bob@x.com"},
	}

	t.Run("created event carries the description", func(t *testing.T) {
		body := svc.body(events.TicketEvent{Change: events.ChangeCreated, Ticket: ticket})
		for _, want := range []string{"IN100000", "VPN down", "High", "bob", "pri@client.com", "cannot connect since 9am"} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q:\n%s", want, body)
			}
		}
		if !strings.Contains(body, "https://portal.example.com/tickets/t-1") {
			t.Errorf("body missing ticket link:\n%s", body)
		}
	})

	t.Run("response event carries the new message", func(t *testing.T) {
		body := svc.body(events.TicketEvent{
			Change:   events.ChangeResponseAdded,
			Ticket:   ticket,
			Response: &domain.Response{Message: "restart the client", AuthorEmail: "bob@x.com"},
		})
		if !strings.Contains(body, "restart the client") || !strings.Contains(body, "bob@x.com") {
			t.Errorf("body missing the response:\n%s", body)
		}
		if strings.Contains(body, "cannot connect since 9am") {
			t.Errorf("response body should not repeat the description:\n%s", body)
		}
	})

	t.Run("unassigned ticket shows placeholder", func(t *testing.T) {
		bare := ticket
		bare.AssignedTo = nil
		body := svc.body(events.TicketEvent{Change: events.ChangeCreated, Ticket: bare})
		if !strings.Contains(body, "Assigned to: -") {
			t.Errorf("body missing the unassigned placeholder:\n%s", body)
		}
	})
}
