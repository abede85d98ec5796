package core

import (
	"errors"
)

type DBUser interface {
	ID() int
	Name() string // email address
	TenantID() int
	IsTenantOwner() bool
}

type UserDB interface {
	ChangePassword(u DBUser, old, new string) error
	GetUser(id int) (DBUser, error)
	GetUserByName(name string) (DBUser, error)
	GetUsers(tenantID int) ([]DBUser, error)
	InsertUser(tenantID int, name string, tenantOwner bool) (DBUser, error)
	LoginUser(name, password string) (DBUser, error)
	SetPassword(u DBUser, password string) error
}

var ErrEmptyPassword = errors.New("refusing to set empty password")

// SetPassword shadows UserDB.SetPassword.
func (c *CoreDB) SetPassword(u DBUser, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	return c.UserDB.SetPassword(u, password)
}

// GetTenantUser returns the user with the given id if it belongs to the given tenant.
func (c *CoreDB) GetTenantUser(tenantID, id int) (DBUser, error) {
	u, err := c.UserDB.GetUser(id)
	if err != nil {
		return nil, err
	}
	if u.TenantID() != tenantID {
		return nil, ErrNotFound
	}
	return u, nil
}
