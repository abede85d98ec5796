package core

// A Tenant is the isolation boundary. All stages, connections and releases belong to exactly one tenant.
type Tenant struct {
	ID           int
	Name         string
	InitialStage int // zero if not configured
}

type TenantDB interface {
	GetTenant(id int) (*Tenant, error)
	GetTenantByName(name string) (*Tenant, error)
	InsertTenant(name string) (*Tenant, error)
	SetInitialStage(t *Tenant, stageID int) error
}

// ConfigureInitialStage sets the stage where new releases of the tenant of u start. Only tenant owners may do that.
func (c *CoreDB) ConfigureInitialStage(u DBUser, stageID int) (*Tenant, error) {

	if u == nil || !u.IsTenantOwner() {
		return nil, ErrUnauthorized
	}

	if _, err := c.StageDB.GetStage(u.TenantID(), stageID); err != nil {
		return nil, err
	}

	tenant, err := c.TenantDB.GetTenant(u.TenantID())
	if err != nil {
		return nil, err
	}

	if err := c.TenantDB.SetInitialStage(tenant, stageID); err != nil {
		return nil, err
	}
	return tenant, nil
}
