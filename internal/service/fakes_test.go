package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/internal/repository"
)

// memTickets is an in-memory TicketRepository with the store's commit
// semantics: mutations serialize, last-write-wins per field, and LastUpdated
// strictly increases on every accepted mutation.
type memTickets struct {
	mu      sync.Mutex
	byID    map[string]*domain.Ticket
	failing int
}

func newMemTickets() *memTickets {
	return &memTickets{byID: map[string]*domain.Ticket{}}
}

func (m *memTickets) bump(ticket *domain.Ticket) {
	next := time.Now()
	if !next.After(ticket.LastUpdated) {
		next = ticket.LastUpdated.Add(time.Microsecond)
	}
	ticket.LastUpdated = next
}

func (m *memTickets) takeFailure() bool {
	if m.failing > 0 {
		m.failing--
		return true
	}
	return false
}

func (m *memTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.takeFailure() {
		return context.DeadlineExceeded
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.LastUpdated = now
	m.byID[ticket.ID] = ticket.Clone()
	return nil
}

func (m *memTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket.Clone(), nil
}

func (m *memTickets) ApplyMutation(ctx context.Context, id string, mut domain.TicketMutation) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.takeFailure() {
		return nil, context.DeadlineExceeded
	}
	ticket, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if mut.Status != nil {
		ticket.Status = *mut.Status
	}
	if mut.Priority != nil {
		ticket.Priority = *mut.Priority
	}
	if mut.Starred != nil {
		ticket.Starred = *mut.Starred
	}
	if mut.AssignedTo != nil {
		assignee := *mut.AssignedTo
		ticket.AssignedTo = &assignee
	} else if mut.ClearAssignee {
		ticket.AssignedTo = nil
	}
	if mut.AssignedByEmail != nil {
		email := *mut.AssignedByEmail
		ticket.AssignedByEmail = &email
	} else if mut.ClearAssignedBy {
		ticket.AssignedByEmail = nil
	}
	m.bump(ticket)
	return ticket.Clone(), nil
}

func (m *memTickets) AppendResponse(ctx context.Context, id string, entry domain.Response) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.takeFailure() {
		return nil, context.DeadlineExceeded
	}
	ticket, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Responses = append(ticket.Responses, entry)
	m.bump(ticket)
	return ticket.Clone(), nil
}

func (m *memTickets) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range m.byID {
		if !matchesFilter(ticket, filter) {
			continue
		}
		result = append(result, *ticket.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastUpdated.Equal(result[j].LastUpdated) {
			return result[i].ID < result[j].ID
		}
		return result[i].LastUpdated.After(result[j].LastUpdated)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memTickets) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func matchesFilter(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if len(filter.Projects) > 0 {
		found := false
		for _, project := range filter.Projects {
			if ticket.Project == project {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if ticket.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Priorities) > 0 {
		found := false
		for _, priority := range filter.Priorities {
			if ticket.Priority == priority {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Starred != nil && ticket.Starred != *filter.Starred {
		return false
	}
	if filter.SearchTerm != nil {
		needle := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if needle != "" &&
			!strings.Contains(strings.ToLower(ticket.Subject), needle) &&
			!strings.Contains(strings.ToLower(ticket.Description), needle) {
			return false
		}
	}
	return true
}

// memCounters backs the sequence generator in service tests.
type memCounters struct {
	mu     sync.Mutex
	values map[string]int64
}

func (m *memCounters) Next(ctx context.Context, key string, start int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]int64{}
	}
	if _, ok := m.values[key]; !ok {
		m.values[key] = start
	} else {
		m.values[key]++
	}
	return m.values[key], nil
}

// memMembers is a fixed membership list per project.
type memMembers struct {
	byProject map[string][]domain.ProjectMember
}

func (m *memMembers) ProjectMembers(ctx context.Context, project string) ([]domain.ProjectMember, error) {
	return m.byProject[project], nil
}
