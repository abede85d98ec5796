package sqldb

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/wansing/releasecab/core"
)

const stageColumns = "id, tenant, name, description, is_end_stage, allow_release_delete"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStage(row scanner) (*core.Stage, error) {
	var s = &core.Stage{}
	return s, row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Description, &s.IsEndStage, &s.AllowReleaseDelete)
}

type StageDB struct {
	*sql.DB
	get       *sql.Stmt
	getByName *sql.Stmt
	getAll    *sql.Stmt
	insert    *sql.Stmt
	update    *sql.Stmt
}

func NewStageDB(db *sql.DB, dialect Dialect) *StageDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS stage (
			id {{pk}},
			tenant int(11) NOT NULL,
			name varchar(50) NOT NULL,
			description varchar(1000) NOT NULL DEFAULT '',
			is_end_stage BOOLEAN NOT NULL DEFAULT 0,
			allow_release_delete BOOLEAN NOT NULL DEFAULT 1
		)`)

	var stageDB = &StageDB{}
	stageDB.DB = db
	stageDB.get = mustPrepare(db, "SELECT "+stageColumns+" FROM stage WHERE tenant = ? AND id = ? LIMIT 1")
	stageDB.getByName = mustPrepare(db, "SELECT "+stageColumns+" FROM stage WHERE tenant = ? AND name = ? ORDER BY id LIMIT 1")
	stageDB.getAll = mustPrepare(db, "SELECT "+stageColumns+" FROM stage WHERE tenant = ? ORDER BY id")
	stageDB.insert = mustPrepare(db, "INSERT INTO stage (tenant, name, description, is_end_stage, allow_release_delete) VALUES (?, ?, ?, ?, ?)")
	stageDB.update = mustPrepare(db, "UPDATE stage SET name = ?, description = ?, is_end_stage = ?, allow_release_delete = ? WHERE tenant = ? AND id = ?")
	return stageDB
}

func (db *StageDB) GetStage(tenantID, id int) (*core.Stage, error) {
	s, err := scanStage(db.get.QueryRow(tenantID, id))
	if err != nil {
		return nil, notFound(err, "stage %d", id)
	}
	return s, nil
}

func (db *StageDB) GetStageByName(tenantID int, name string) (*core.Stage, error) {
	s, err := scanStage(db.getByName.QueryRow(tenantID, name))
	if err != nil {
		return nil, notFound(err, "stage %s", name)
	}
	return s, nil
}

func (db *StageDB) GetStages(tenantID int) ([]*core.Stage, error) {

	rows, err := db.getAll.Query(tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages = []*core.Stage{}
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

func (db *StageDB) InsertStage(s *core.Stage) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return errors.New("stage name can't be empty")
	}
	res, err := db.insert.Exec(s.TenantID, s.Name, s.Description, s.IsEndStage, s.AllowReleaseDelete)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = int(id)
	return nil
}

func (db *StageDB) UpdateStage(s *core.Stage) error {
	_, err := db.update.Exec(s.Name, s.Description, s.IsEndStage, s.AllowReleaseDelete, s.TenantID, s.ID)
	return err
}
