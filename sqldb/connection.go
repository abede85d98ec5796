package sqldb

import (
	"database/sql"
	"fmt"

	"github.com/wansing/releasecab/core"
)

const connectionSelect = `
	SELECT c.id, c.tenant, c.owner_only, c.owner_included,
		f.id, f.tenant, f.name, f.description, f.is_end_stage, f.allow_release_delete,
		t.id, t.tenant, t.name, t.description, t.is_end_stage, t.allow_release_delete
	FROM stage_connection c
	JOIN stage f ON f.id = c.from_stage
	JOIN stage t ON t.id = c.to_stage `

type ConnectionDB struct {
	*sql.DB
	between     *sql.Stmt
	clearRoles  *sql.Stmt
	clearTeams  *sql.Stmt
	clearGroups *sql.Stmt
	delete      *sql.Stmt
	get         *sql.Stmt
	getAll      *sql.Stmt
	groupRoles  *sql.Stmt
	groupTeams  *sql.Stmt
	groups      *sql.Stmt
	insert      *sql.Stmt
	insertGroup *sql.Stmt
	insertRole  *sql.Stmt
	insertTeam  *sql.Stmt
	outgoing    *sql.Stmt
	update      *sql.Stmt
}

func NewConnectionDB(db *sql.DB, dialect Dialect) *ConnectionDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS stage_connection (
			id {{pk}},
			tenant int(11) NOT NULL,
			from_stage int(11) NOT NULL,
			to_stage int(11) NOT NULL,
			owner_only BOOLEAN NOT NULL DEFAULT 0,
			owner_included BOOLEAN NOT NULL DEFAULT 0
		)`, `
		CREATE TABLE IF NOT EXISTS connection_approver (
			id {{pk}},
			conn int(11) NOT NULL
		)`, `
		CREATE TABLE IF NOT EXISTS approver_role (
			approver int(11) NOT NULL,
			role int(11) NOT NULL,
			PRIMARY KEY (approver, role)
		)`, `
		CREATE TABLE IF NOT EXISTS approver_team (
			approver int(11) NOT NULL,
			team int(11) NOT NULL,
			PRIMARY KEY (approver, team)
		)`)

	var connectionDB = &ConnectionDB{}
	connectionDB.DB = db
	connectionDB.between = mustPrepare(db, connectionSelect+"WHERE c.tenant = ? AND c.from_stage = ? AND c.to_stage = ? ORDER BY c.id LIMIT 1")
	connectionDB.clearRoles = mustPrepare(db, "DELETE FROM approver_role WHERE approver IN (SELECT id FROM connection_approver WHERE conn = ?)")
	connectionDB.clearTeams = mustPrepare(db, "DELETE FROM approver_team WHERE approver IN (SELECT id FROM connection_approver WHERE conn = ?)")
	connectionDB.clearGroups = mustPrepare(db, "DELETE FROM connection_approver WHERE conn = ?")
	connectionDB.delete = mustPrepare(db, "DELETE FROM stage_connection WHERE tenant = ? AND id = ?")
	connectionDB.get = mustPrepare(db, connectionSelect+"WHERE c.tenant = ? AND c.id = ? LIMIT 1")
	connectionDB.getAll = mustPrepare(db, connectionSelect+"WHERE c.tenant = ? ORDER BY c.id")
	connectionDB.groupRoles = mustPrepare(db, "SELECT role FROM approver_role WHERE approver = ? ORDER BY role")
	connectionDB.groupTeams = mustPrepare(db, "SELECT team FROM approver_team WHERE approver = ? ORDER BY team")
	connectionDB.groups = mustPrepare(db, "SELECT id FROM connection_approver WHERE conn = ? ORDER BY id")
	connectionDB.insert = mustPrepare(db, "INSERT INTO stage_connection (tenant, from_stage, to_stage, owner_only, owner_included) VALUES (?, ?, ?, ?, ?)")
	connectionDB.insertGroup = mustPrepare(db, "INSERT INTO connection_approver (conn) VALUES (?)")
	connectionDB.insertRole = mustPrepare(db, "INSERT INTO approver_role (approver, role) VALUES (?, ?)")
	connectionDB.insertTeam = mustPrepare(db, "INSERT INTO approver_team (approver, team) VALUES (?, ?)")
	connectionDB.outgoing = mustPrepare(db, connectionSelect+"WHERE c.tenant = ? AND c.from_stage = ? ORDER BY c.id")
	connectionDB.update = mustPrepare(db, "UPDATE stage_connection SET owner_only = ?, owner_included = ? WHERE tenant = ? AND id = ?")
	return connectionDB
}

func scanConnection(row scanner) (*core.Connection, error) {
	var conn = &core.Connection{}
	err := row.Scan(
		&conn.ID, &conn.TenantID, &conn.OwnerOnly, &conn.OwnerIncluded,
		&conn.From.ID, &conn.From.TenantID, &conn.From.Name, &conn.From.Description, &conn.From.IsEndStage, &conn.From.AllowReleaseDelete,
		&conn.To.ID, &conn.To.TenantID, &conn.To.Name, &conn.To.Description, &conn.To.IsEndStage, &conn.To.AllowReleaseDelete,
	)
	return conn, err
}

// loadApprovers sets conn.Approvers, which is never nil afterwards.
func (db *ConnectionDB) loadApprovers(conn *core.Connection) error {

	groupRows, err := db.groups.Query(conn.ID)
	if err != nil {
		return err
	}
	groupIDs, err := ints(groupRows)
	if err != nil {
		return err
	}

	conn.Approvers = make([]core.ApproverGroup, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		var g = core.ApproverGroup{ID: groupID}

		roleRows, err := db.groupRoles.Query(groupID)
		if err != nil {
			return err
		}
		if g.Roles, err = ints(roleRows); err != nil {
			return err
		}

		teamRows, err := db.groupTeams.Query(groupID)
		if err != nil {
			return err
		}
		if g.Teams, err = ints(teamRows); err != nil {
			return err
		}

		conn.Approvers = append(conn.Approvers, g)
	}
	return nil
}

// queryConnections scans all rows first, because loading the approvers needs another connection from the pool.
func (db *ConnectionDB) queryConnections(stmt *sql.Stmt, args ...interface{}) ([]*core.Connection, error) {

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}

	var conns = []*core.Connection{}
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		conns = append(conns, conn)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for _, conn := range conns {
		if err = db.loadApprovers(conn); err != nil {
			return nil, err
		}
	}
	return conns, nil
}

func (db *ConnectionDB) ConnectionBetween(tenantID, fromStageID, toStageID int) (*core.Connection, bool, error) {
	conn, err := scanConnection(db.between.QueryRow(tenantID, fromStageID, toStageID))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err = db.loadApprovers(conn); err != nil {
		return nil, false, err
	}
	return conn, true, nil
}

func (db *ConnectionDB) DeleteConnection(conn *core.Connection) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if err = clearApprovers(tx, db, conn.ID); err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Stmt(db.delete).Exec(conn.TenantID, conn.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *ConnectionDB) GetConnection(tenantID, id int) (*core.Connection, error) {
	conn, err := scanConnection(db.get.QueryRow(tenantID, id))
	if err != nil {
		return nil, notFound(err, "connection %d", id)
	}
	return conn, db.loadApprovers(conn)
}

func (db *ConnectionDB) GetConnections(tenantID int) ([]*core.Connection, error) {
	return db.queryConnections(db.getAll, tenantID)
}

func (db *ConnectionDB) Outgoing(tenantID, fromStageID int) ([]*core.Connection, error) {
	return db.queryConnections(db.outgoing, tenantID, fromStageID)
}

func (db *ConnectionDB) InsertConnection(conn *core.Connection) error {

	if conn.From.TenantID != conn.TenantID || conn.To.TenantID != conn.TenantID {
		return fmt.Errorf("connection %s: stages belong to another tenant", conn)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	res, err := tx.Stmt(db.insert).Exec(conn.TenantID, conn.From.ID, conn.To.ID, conn.OwnerOnly, conn.OwnerIncluded)
	if err != nil {
		tx.Rollback()
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return err
	}

	if err = pushApprovers(tx, db, int(id), conn.Approvers); err != nil {
		tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	conn.ID = int(id)
	if conn.Approvers == nil {
		conn.Approvers = []core.ApproverGroup{}
	}
	return nil
}

// UpdateConnection writes the flags and replaces the approver groups of the connection in one transaction.
func (db *ConnectionDB) UpdateConnection(conn *core.Connection, groups []core.ApproverGroup) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if _, err = tx.Stmt(db.update).Exec(conn.OwnerOnly, conn.OwnerIncluded, conn.TenantID, conn.ID); err != nil {
		tx.Rollback()
		return err
	}

	if err = clearApprovers(tx, db, conn.ID); err != nil {
		tx.Rollback()
		return err
	}

	if err = pushApprovers(tx, db, conn.ID, groups); err != nil {
		tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	return db.loadApprovers(conn)
}

func clearApprovers(tx *sql.Tx, db *ConnectionDB, connID int) error {
	for _, stmt := range []*sql.Stmt{db.clearRoles, db.clearTeams, db.clearGroups} {
		if _, err := tx.Stmt(stmt).Exec(connID); err != nil {
			return err
		}
	}
	return nil
}

func pushApprovers(tx *sql.Tx, db *ConnectionDB, connID int, groups []core.ApproverGroup) error {
	for _, g := range groups {
		res, err := tx.Stmt(db.insertGroup).Exec(connID)
		if err != nil {
			return err
		}
		groupID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, roleID := range g.Roles {
			if _, err = tx.Stmt(db.insertRole).Exec(groupID, roleID); err != nil {
				return err
			}
		}
		for _, teamID := range g.Teams {
			if _, err = tx.Stmt(db.insertTeam).Exec(groupID, teamID); err != nil {
				return err
			}
		}
	}
	return nil
}
