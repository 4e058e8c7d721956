package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geethasandesh/articket/internal/domain"
)

// TicketFilter captures listing parameters. Pointer fields are optional.
type TicketFilter struct {
	Projects       []string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	CreatedByEmail *string
	AssigneeEmail  *string
	Starred        *bool
	SearchTerm     *string
	Limit          int
	Offset         int
}

// TicketRepository is the authoritative ticket store. Mutations to one ticket
// are serialized by row-level locking; partial updates apply last-write-wins
// per field and always re-stamp last_updated.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ApplyMutation(ctx context.Context, id string, mut domain.TicketMutation) (*domain.Ticket, error)
	AppendResponse(ctx context.Context, id string, entry domain.Response) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

const ticketColumns = `id, ticket_number, subject, description, category, priority, project, status,
               customer_name, created_by_email, created_by_role, starred, assigned_to,
               assigned_by_email, attachments, responses, created_at, last_updated`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, ticket_number, subject, description, category, priority, project,
                             status, customer_name, created_by_email, created_by_role, starred,
                             assigned_to, assigned_by_email, attachments, responses)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING created_at, last_updated`
	attachments := ticket.Attachments
	if attachments == nil {
		attachments = []domain.AttachmentMeta{}
	}
	responses := ticket.Responses
	if responses == nil {
		responses = []domain.Response{}
	}
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.TicketNumber,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Project,
		ticket.Status,
		ticket.CustomerName,
		ticket.CreatedByEmail,
		ticket.CreatedByRole,
		ticket.Starred,
		ticket.AssignedTo,
		ticket.AssignedByEmail,
		attachments,
		responses,
	).Scan(&ticket.CreatedAt, &ticket.LastUpdated)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) ApplyMutation(ctx context.Context, id string, mut domain.TicketMutation) (*domain.Ticket, error) {
	// last_updated must strictly increase even when two commits land within
	// the same clock tick.
	sets := []string{"last_updated = GREATEST(last_updated + interval '1 microsecond', clock_timestamp())"}
	args := []any{id}

	if mut.Status != nil {
		args = append(args, *mut.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}
	if mut.Priority != nil {
		args = append(args, *mut.Priority)
		sets = append(sets, fmt.Sprintf("priority=$%d", len(args)))
	}
	if mut.Starred != nil {
		args = append(args, *mut.Starred)
		sets = append(sets, fmt.Sprintf("starred=$%d", len(args)))
	}
	if mut.AssignedTo != nil {
		args = append(args, *mut.AssignedTo)
		sets = append(sets, fmt.Sprintf("assigned_to=$%d", len(args)))
	} else if mut.ClearAssignee {
		sets = append(sets, "assigned_to=NULL")
	}
	if mut.AssignedByEmail != nil {
		args = append(args, *mut.AssignedByEmail)
		sets = append(sets, fmt.Sprintf("assigned_by_email=$%d", len(args)))
	} else if mut.ClearAssignedBy {
		sets = append(sets, "assigned_by_email=NULL")
	}

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$1 RETURNING %s`,
		strings.Join(sets, ", "), ticketColumns)
	return scanTicket(r.pool.QueryRow(ctx, query, args...))
}

func (r *ticketRepository) AppendResponse(ctx context.Context, id string, entry domain.Response) (*domain.Ticket, error) {
	// Append and last_updated bump commit together so a reader that observes
	// the new last_updated is guaranteed to see the entry.
	query := fmt.Sprintf(`
        UPDATE tickets
        SET responses = responses || $2::jsonb,
            last_updated = GREATEST(last_updated + interval '1 microsecond', clock_timestamp())
        WHERE id=$1
        RETURNING %s`, ticketColumns)
	return scanTicket(r.pool.QueryRow(ctx, query, id, entry))
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Projects) > 0 {
		placeholders := make([]string, len(filter.Projects))
		for i, project := range filter.Projects {
			args = append(args, project)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("project IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedByEmail != nil {
		args = append(args, *filter.CreatedByEmail)
		clauses = append(clauses, fmt.Sprintf("created_by_email=$%d", len(args)))
	}
	if filter.AssigneeEmail != nil {
		args = append(args, *filter.AssigneeEmail)
		clauses = append(clauses, fmt.Sprintf("assigned_to->>'email'=$%d", len(args)))
	}
	if filter.Starred != nil {
		args = append(args, *filter.Starred)
		clauses = append(clauses, fmt.Sprintf("starred=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	// id breaks last_updated ties so paging never skips or repeats a row
	query := fmt.Sprintf(`%s WHERE %s ORDER BY last_updated DESC, id LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Project,
		&ticket.Status,
		&ticket.CustomerName,
		&ticket.CreatedByEmail,
		&ticket.CreatedByRole,
		&ticket.Starred,
		&ticket.AssignedTo,
		&ticket.AssignedByEmail,
		&ticket.Attachments,
		&ticket.Responses,
		&ticket.CreatedAt,
		&ticket.LastUpdated,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
