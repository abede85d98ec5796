package core

type Role struct {
	ID       int
	TenantID int
	Name     string
}

type RoleDB interface {
	GetRole(tenantID, id int) (*Role, error)
	GetRoleByName(tenantID int, name string) (*Role, error)
	GetRoles(tenantID int) ([]*Role, error)
	GrantRole(u DBUser, roleID int) error
	HasRole(u DBUser, roleID int) (bool, error) // error wraps ErrNotFound if the role does not exist in the tenant of u
	InsertRole(tenantID int, name string) (*Role, error)
}

type Team struct {
	ID       int
	TenantID int
	Name     string
}

type TeamDB interface {
	GetTeam(tenantID, id int) (*Team, error)
	GetTeamByName(tenantID int, name string) (*Team, error)
	GetTeams(tenantID int) ([]*Team, error)
	InTeam(u DBUser, teamID int) (bool, error) // member or manager, error wraps ErrNotFound if the team does not exist in the tenant of u
	InsertTeam(tenantID int, name string) (*Team, error)
	JoinTeam(u DBUser, teamID int, manager bool) error
}

// UserHasRole shadows RoleDB.HasRole.
func (c *CoreDB) UserHasRole(u DBUser, roleID int) (bool, error) {
	if u == nil {
		return false, nil
	}
	return c.RoleDB.HasRole(u, roleID)
}

// UserInTeam shadows TeamDB.InTeam. Managers count as team members.
func (c *CoreDB) UserInTeam(u DBUser, teamID int) (bool, error) {
	if u == nil {
		return false, nil
	}
	return c.TeamDB.InTeam(u, teamID)
}
