package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geethasandesh/articket/internal/domain"
)

// MembershipRepository resolves who counts as a member of a project. The
// data is owned by the external membership collaborator; this repository is
// a read-only view of it.
type MembershipRepository interface {
	ProjectMembers(ctx context.Context, project string) ([]domain.ProjectMember, error)
}

type membershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository instantiates repository.
func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{pool: pool}
}

func (r *membershipRepository) ProjectMembers(ctx context.Context, project string) ([]domain.ProjectMember, error) {
	const query = `
        SELECT uid, name, email, role, status
        FROM project_members WHERE project=$1 ORDER BY email ASC`
	rows, err := r.pool.Query(ctx, query, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProjectMember
	for rows.Next() {
		var member domain.ProjectMember
		if err := rows.Scan(
			&member.UID,
			&member.Name,
			&member.Email,
			&member.Role,
			&member.Status,
		); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}
