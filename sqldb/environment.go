package sqldb

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/wansing/releasecab/core"
)

type EnvironmentDB struct {
	*sql.DB
	getAll    *sql.Stmt
	getByName *sql.Stmt
	insert    *sql.Stmt
}

func NewEnvironmentDB(db *sql.DB, dialect Dialect) *EnvironmentDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS environment (
			id {{pk}},
			tenant int(11) NOT NULL,
			name varchar(100) NOT NULL,
			UNIQUE (tenant, name)
		)`)

	var environmentDB = &EnvironmentDB{}
	environmentDB.DB = db
	environmentDB.getAll = mustPrepare(db, "SELECT id, name FROM environment WHERE tenant = ? ORDER BY name")
	environmentDB.getByName = mustPrepare(db, "SELECT id FROM environment WHERE tenant = ? AND name = ? LIMIT 1")
	environmentDB.insert = mustPrepare(db, "INSERT INTO environment (tenant, name) VALUES (?, ?)")
	return environmentDB
}

func (db *EnvironmentDB) GetEnvironmentByName(tenantID int, name string) (*core.Environment, error) {
	var e = &core.Environment{
		TenantID: tenantID,
		Name:     name,
	}
	if err := db.getByName.QueryRow(tenantID, name).Scan(&e.ID); err != nil {
		return nil, notFound(err, "environment %s", name)
	}
	return e, nil
}

func (db *EnvironmentDB) GetEnvironments(tenantID int) ([]*core.Environment, error) {

	rows, err := db.getAll.Query(tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []*core.Environment{}
	for rows.Next() {
		var e = &core.Environment{TenantID: tenantID}
		if err = rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		all = append(all, e)
	}
	return all, rows.Err()
}

func (db *EnvironmentDB) InsertEnvironment(tenantID int, name string) (*core.Environment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("environment name can't be empty")
	}
	res, err := db.insert.Exec(tenantID, name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &core.Environment{
		ID:       int(id),
		TenantID: tenantID,
		Name:     name,
	}, nil
}
