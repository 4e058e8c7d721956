package domain

// Role enumerates the portal roles carried in the identity claim.
type Role string

const (
	RoleClient         Role = "client"
	RoleEmployee       Role = "employee"
	RoleProjectManager Role = "project_manager"
	RoleAdmin          Role = "admin"
	RoleClientHead     Role = "client_head"
	// RoleSystem authors audit entries generated by the coordination engine
	// itself; it is never a caller role.
	RoleSystem Role = "system"
)

// Caller is the identity claim resolved by the external auth collaborator.
// The core trusts it as-is.
type Caller struct {
	UID     string
	Email   string
	Role    Role
	Project string
	// ManagedProjects scopes a project manager; empty means Project only.
	ManagedProjects []string
}

// Projects returns every project the caller is scoped to.
func (c Caller) Projects() []string {
	if c.Role == RoleProjectManager && len(c.ManagedProjects) > 0 {
		return c.ManagedProjects
	}
	if c.Project == "" {
		return nil
	}
	return []string{c.Project}
}

// IsManager reports whether the caller holds assignment-manager privileges.
func (c Caller) IsManager() bool {
	return c.Role == RoleProjectManager || c.Role == RoleAdmin
}
