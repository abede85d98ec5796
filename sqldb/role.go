package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wansing/releasecab/core"
)

type RoleDB struct {
	*sql.DB
	get       *sql.Stmt
	getByName *sql.Stmt
	getAll    *sql.Stmt
	grant     *sql.Stmt
	has       *sql.Stmt
	insert    *sql.Stmt
}

func NewRoleDB(db *sql.DB, dialect Dialect) *RoleDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS role (
			id {{pk}},
			tenant int(11) NOT NULL,
			name varchar(50) NOT NULL,
			UNIQUE (tenant, name)
		)`, `
		CREATE TABLE IF NOT EXISTS usr_role (
			usr int(11) NOT NULL,
			role int(11) NOT NULL,
			PRIMARY KEY (usr, role)
		)`)

	var roleDB = &RoleDB{}
	roleDB.DB = db
	roleDB.get = mustPrepare(db, "SELECT name FROM role WHERE tenant = ? AND id = ? LIMIT 1")
	roleDB.getByName = mustPrepare(db, "SELECT id FROM role WHERE tenant = ? AND name = ? LIMIT 1")
	roleDB.getAll = mustPrepare(db, "SELECT id, name FROM role WHERE tenant = ? ORDER BY name")
	roleDB.grant = mustPrepare(db, "INSERT INTO usr_role (usr, role) VALUES (?, ?)")
	roleDB.has = mustPrepare(db, "SELECT COUNT(*) FROM usr_role WHERE usr = ? AND role = ?")
	roleDB.insert = mustPrepare(db, "INSERT INTO role (tenant, name) VALUES (?, ?)")
	return roleDB
}

func (db *RoleDB) GetRole(tenantID, id int) (*core.Role, error) {
	var r = &core.Role{
		ID:       id,
		TenantID: tenantID,
	}
	if err := db.get.QueryRow(tenantID, id).Scan(&r.Name); err != nil {
		return nil, notFound(err, "role %d", id)
	}
	return r, nil
}

func (db *RoleDB) GetRoleByName(tenantID int, name string) (*core.Role, error) {
	var r = &core.Role{
		TenantID: tenantID,
		Name:     name,
	}
	if err := db.getByName.QueryRow(tenantID, name).Scan(&r.ID); err != nil {
		return nil, notFound(err, "role %s", name)
	}
	return r, nil
}

func (db *RoleDB) GetRoles(tenantID int) ([]*core.Role, error) {

	rows, err := db.getAll.Query(tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles = []*core.Role{}
	for rows.Next() {
		var r = &core.Role{TenantID: tenantID}
		if err = rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (db *RoleDB) GrantRole(u core.DBUser, roleID int) error {
	if _, err := db.GetRole(u.TenantID(), roleID); err != nil {
		return err
	}
	_, err := db.grant.Exec(u.ID(), roleID)
	return err
}

// HasRole returns an error wrapping core.ErrNotFound if the role does not exist in the tenant of the user.
func (db *RoleDB) HasRole(u core.DBUser, roleID int) (bool, error) {
	if _, err := db.GetRole(u.TenantID(), roleID); err != nil {
		return false, err
	}
	var count int
	if err := db.has.QueryRow(u.ID(), roleID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *RoleDB) InsertRole(tenantID int, name string) (*core.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("role name can't be empty")
	}
	res, err := db.insert.Exec(tenantID, name)
	if err != nil {
		return nil, fmt.Errorf("inserting role %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &core.Role{
		ID:       int(id),
		TenantID: tenantID,
		Name:     name,
	}, nil
}
