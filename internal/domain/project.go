package domain

// MemberStatus marks whether a membership record is active.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

// ProjectMember is one membership record, supplied read-only by the external
// membership collaborator.
type ProjectMember struct {
	UID    string       `json:"uid"`
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	Role   Role         `json:"role"`
	Status MemberStatus `json:"status"`
}

// Project is the scoping unit for visibility and assignment.
type Project struct {
	ID      string
	Name    string
	Members []ProjectMember
}
