package core

import "fmt"

// An Environment is a deployment target like "production". Releases and blackouts refer to environments.
type Environment struct {
	ID       int
	TenantID int
	Name     string
}

type EnvironmentDB interface {
	GetEnvironmentByName(tenantID int, name string) (*Environment, error)
	GetEnvironments(tenantID int) ([]*Environment, error)
	InsertEnvironment(tenantID int, name string) (*Environment, error)
}

// ValidateEnvironments checks that all ids refer to environments of the tenant.
func (c *CoreDB) ValidateEnvironments(tenantID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	all, err := c.EnvironmentDB.GetEnvironments(tenantID)
	if err != nil {
		return err
	}
	var known = make(map[int]struct{}, len(all))
	for _, e := range all {
		known[e.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("environment %d: %w", id, ErrNotFound)
		}
	}
	return nil
}
