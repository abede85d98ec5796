package sqldb

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/wansing/releasecab/core"
)

type BlackoutDB struct {
	*sql.DB
	clearEnvironments *sql.Stmt
	delete            *sql.Stmt
	environments      *sql.Stmt
	get               *sql.Stmt
	getAll            *sql.Stmt
	insert            *sql.Stmt
	pushEnvironment   *sql.Stmt
	update            *sql.Stmt
}

func NewBlackoutDB(db *sql.DB, dialect Dialect) *BlackoutDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS blackout (
			id {{pk}},
			tenant int(11) NOT NULL,
			name varchar(200) NOT NULL,
			description text NOT NULL,
			start_date bigint NOT NULL,
			end_date bigint NOT NULL,
			owner int(11) NOT NULL
		)`, `
		CREATE TABLE IF NOT EXISTS blackout_environment (
			blackout int(11) NOT NULL,
			environment int(11) NOT NULL,
			PRIMARY KEY (blackout, environment)
		)`)

	var blackoutDB = &BlackoutDB{}
	blackoutDB.DB = db
	blackoutDB.clearEnvironments = mustPrepare(db, "DELETE FROM blackout_environment WHERE blackout = ?")
	blackoutDB.delete = mustPrepare(db, "DELETE FROM blackout WHERE tenant = ? AND id = ?")
	blackoutDB.environments = mustPrepare(db, "SELECT environment FROM blackout_environment WHERE blackout = ? ORDER BY environment")
	blackoutDB.get = mustPrepare(db, "SELECT id, name, description, start_date, end_date, owner FROM blackout WHERE tenant = ? AND id = ? LIMIT 1")
	blackoutDB.getAll = mustPrepare(db, "SELECT id, name, description, start_date, end_date, owner FROM blackout WHERE tenant = ? ORDER BY start_date, id")
	blackoutDB.insert = mustPrepare(db, "INSERT INTO blackout (tenant, name, description, start_date, end_date, owner) VALUES (?, ?, ?, ?, ?, ?)")
	blackoutDB.pushEnvironment = mustPrepare(db, "INSERT INTO blackout_environment (blackout, environment) VALUES (?, ?)")
	blackoutDB.update = mustPrepare(db, "UPDATE blackout SET name = ?, description = ?, start_date = ?, end_date = ? WHERE tenant = ? AND id = ?")
	return blackoutDB
}

func (db *BlackoutDB) DeleteBlackout(b *core.Blackout) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Stmt(db.clearEnvironments).Exec(b.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Stmt(db.delete).Exec(b.TenantID, b.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *BlackoutDB) GetBlackout(tenantID, id int) (*core.Blackout, error) {

	var b = &core.Blackout{TenantID: tenantID}
	var start, end int64
	err := db.get.QueryRow(tenantID, id).Scan(&b.ID, &b.Name, &b.Description, &start, &end, &b.OwnerID)
	if err != nil {
		return nil, notFound(err, "blackout %d", id)
	}
	b.StartDate = fromUnix(start)
	b.EndDate = fromUnix(end)

	rows, err := db.environments.Query(b.ID)
	if err != nil {
		return nil, err
	}
	if b.Environments, err = ints(rows); err != nil {
		return nil, err
	}
	return b, nil
}

func (db *BlackoutDB) GetBlackouts(tenantID int) ([]*core.Blackout, error) {

	rows, err := db.getAll.Query(tenantID)
	if err != nil {
		return nil, err
	}

	var blackouts = []*core.Blackout{}
	for rows.Next() {
		var b = &core.Blackout{TenantID: tenantID}
		var start, end int64
		if err = rows.Scan(&b.ID, &b.Name, &b.Description, &start, &end, &b.OwnerID); err != nil {
			rows.Close()
			return nil, err
		}
		b.StartDate = fromUnix(start)
		b.EndDate = fromUnix(end)
		blackouts = append(blackouts, b)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for _, b := range blackouts {
		envRows, err := db.environments.Query(b.ID)
		if err != nil {
			return nil, err
		}
		if b.Environments, err = ints(envRows); err != nil {
			return nil, err
		}
	}
	return blackouts, nil
}

func (db *BlackoutDB) InsertBlackout(b *core.Blackout) error {

	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return errors.New("blackout name can't be empty")
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	res, err := tx.Stmt(db.insert).Exec(b.TenantID, b.Name, b.Description, unix(b.StartDate), unix(b.EndDate), b.OwnerID)
	if err != nil {
		tx.Rollback()
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return err
	}

	for _, env := range b.Environments {
		if _, err = tx.Stmt(db.pushEnvironment).Exec(id, env); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	b.ID = int(id)
	return nil
}

func (db *BlackoutDB) UpdateBlackout(b *core.Blackout) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Stmt(db.update).Exec(b.Name, b.Description, unix(b.StartDate), unix(b.EndDate), b.TenantID, b.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Stmt(db.clearEnvironments).Exec(b.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	for _, env := range b.Environments {
		if _, err = tx.Stmt(db.pushEnvironment).Exec(b.ID, env); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
