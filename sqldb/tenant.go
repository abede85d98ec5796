package sqldb

import (
	"database/sql"

	"github.com/wansing/releasecab/core"
)

type TenantDB struct {
	*sql.DB
	get             *sql.Stmt
	getByName       *sql.Stmt
	insert          *sql.Stmt
	setInitialStage *sql.Stmt
}

func NewTenantDB(db *sql.DB, dialect Dialect) *TenantDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS tenant (
			id {{pk}},
			name varchar(100) NOT NULL,
			initial_stage int(11) NOT NULL DEFAULT 0,
			UNIQUE (name)
		)`)

	var tenantDB = &TenantDB{}
	tenantDB.DB = db
	tenantDB.get = mustPrepare(db, "SELECT name, initial_stage FROM tenant WHERE id = ? LIMIT 1")
	tenantDB.getByName = mustPrepare(db, "SELECT id, initial_stage FROM tenant WHERE name = ? LIMIT 1")
	tenantDB.insert = mustPrepare(db, "INSERT INTO tenant (name) VALUES (?)")
	tenantDB.setInitialStage = mustPrepare(db, "UPDATE tenant SET initial_stage = ? WHERE id = ?")
	return tenantDB
}

func (db *TenantDB) GetTenant(id int) (*core.Tenant, error) {
	var t = &core.Tenant{ID: id}
	if err := db.get.QueryRow(id).Scan(&t.Name, &t.InitialStage); err != nil {
		return nil, notFound(err, "tenant %d", id)
	}
	return t, nil
}

func (db *TenantDB) GetTenantByName(name string) (*core.Tenant, error) {
	var t = &core.Tenant{Name: name}
	if err := db.getByName.QueryRow(name).Scan(&t.ID, &t.InitialStage); err != nil {
		return nil, notFound(err, "tenant %s", name)
	}
	return t, nil
}

func (db *TenantDB) InsertTenant(name string) (*core.Tenant, error) {
	res, err := db.insert.Exec(name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &core.Tenant{
		ID:   int(id),
		Name: name,
	}, nil
}

func (db *TenantDB) SetInitialStage(t *core.Tenant, stageID int) error {
	if _, err := db.setInitialStage.Exec(stageID, t.ID); err != nil {
		return err
	}
	t.InitialStage = stageID
	return nil
}
