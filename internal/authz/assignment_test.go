package authz

import (
	"testing"

	"github.com/geethasandesh/articket/internal/domain"
	apperrors "github.com/geethasandesh/articket/pkg/util"
)

func vmmMembers() []domain.ProjectMember {
	return []domain.ProjectMember{
		{Name: "alice", Email: "alice@x.com", Role: domain.RoleEmployee, Status: domain.MemberStatusActive},
		{Name: "bob", Email: "bob@x.com", Role: domain.RoleEmployee, Status: domain.MemberStatusActive},
		{Name: "carol", Email: "carol@x.com", Role: domain.RoleEmployee, Status: domain.MemberStatusInactive},
		{Name: "pat", Email: "pat@x.com", Role: domain.RoleProjectManager, Status: domain.MemberStatusActive},
	}
}

func clientTicket(assignee *domain.Assignee) *domain.Ticket {
	return &domain.Ticket{
		ID:            "t-1",
		Project:       "VMM",
		CreatedByRole: domain.RoleClient,
		AssignedTo:    assignee,
	}
}

func employeeTicket(assignee *domain.Assignee) *domain.Ticket {
	return &domain.Ticket{
		ID:            "t-2",
		Project:       "VMM",
		CreatedByRole: domain.RoleEmployee,
		AssignedTo:    assignee,
	}
}

func TestCanAssign(t *testing.T) {
	employee := domain.Caller{UID: "u1", Email: "alice@x.com", Role: domain.RoleEmployee, Project: "VMM"}
	manager := domain.Caller{UID: "u2", Email: "pat@x.com", Role: domain.RoleProjectManager, ManagedProjects: []string{"VMM"}}
	admin := domain.Caller{UID: "u3", Email: "root@x.com", Role: domain.RoleAdmin}

	tests := []struct {
		name     string
		caller   domain.Caller
		ticket   *domain.Ticket
		assignee string
		wantCode string
	}{
		{
			name:     "employee self-assigns client ticket",
			caller:   employee,
			ticket:   clientTicket(nil),
			assignee: "alice@x.com",
		},
		{
			name:     "employee cannot hand client ticket to someone else",
			caller:   employee,
			ticket:   clientTicket(nil),
			assignee: "bob@x.com",
			wantCode: "FORBIDDEN",
		},
		{
			name:     "client ticket already taken by another",
			caller:   employee,
			ticket:   clientTicket(&domain.Assignee{Name: "bob", Email: "bob@x.com"}),
			assignee: "alice@x.com",
			wantCode: "FORBIDDEN",
		},
		{
			name:     "client ticket already assigned to caller",
			caller:   employee,
			ticket:   clientTicket(&domain.Assignee{Name: "alice", Email: "alice@x.com"}),
			assignee: "alice@x.com",
			wantCode: "CONFLICT",
		},
		{
			name:     "manager assigns any project employee",
			caller:   manager,
			ticket:   clientTicket(nil),
			assignee: "bob@x.com",
		},
		{
			name:     "manager may self-assign",
			caller:   manager,
			ticket:   clientTicket(nil),
			assignee: "pat@x.com",
		},
		{
			name:     "admin assigns project employee",
			caller:   admin,
			ticket:   employeeTicket(nil),
			assignee: "bob@x.com",
		},
		{
			name:     "manager cannot assign a non-member",
			caller:   manager,
			ticket:   employeeTicket(nil),
			assignee: "stranger@y.com",
			wantCode: "FORBIDDEN",
		},
		{
			name:     "manager cannot assign an inactive member",
			caller:   manager,
			ticket:   employeeTicket(nil),
			assignee: "carol@x.com",
			wantCode: "FORBIDDEN",
		},
		{
			name:     "employee takes employee ticket themselves",
			caller:   employee,
			ticket:   employeeTicket(nil),
			assignee: "alice@x.com",
		},
		{
			name:     "employee assigns employee ticket to colleague",
			caller:   employee,
			ticket:   employeeTicket(nil),
			assignee: "bob@x.com",
		},
		{
			name:     "empty assignee rejected",
			caller:   manager,
			ticket:   employeeTicket(nil),
			assignee: "  ",
			wantCode: "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanAssign(tt.caller, tt.ticket, tt.assignee, vmmMembers())
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("CanAssign() = %v, want nil", err)
				}
				return
			}
			if !apperrors.IsCode(err, tt.wantCode) {
				t.Errorf("CanAssign() = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestCanUnassign(t *testing.T) {
	caller := domain.Caller{Email: "alice@x.com", Role: domain.RoleEmployee, Project: "VMM"}

	if err := CanUnassign(caller, clientTicket(&domain.Assignee{Name: "bob", Email: "bob@x.com"})); err != nil {
		t.Errorf("CanUnassign(assigned) = %v, want nil", err)
	}
	if err := CanUnassign(caller, clientTicket(nil)); !apperrors.IsCode(err, "CONFLICT") {
		t.Errorf("CanUnassign(unassigned) = %v, want CONFLICT", err)
	}
}

func TestAssigneeName(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"bob@x.com", "bob"},
		{"first.last@example.org", "first.last"},
		{"noatsign", "noatsign"},
		{"@leading", "@leading"},
	}
	for _, tt := range tests {
		if got := AssigneeName(tt.email); got != tt.want {
			t.Errorf("AssigneeName(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
