package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wansing/releasecab/core"
)

type TeamDB struct {
	*sql.DB
	get       *sql.Stmt
	getByName *sql.Stmt
	getAll    *sql.Stmt
	insert    *sql.Stmt
	join      *sql.Stmt
	members   *sql.Stmt
}

func NewTeamDB(db *sql.DB, dialect Dialect) *TeamDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS team (
			id {{pk}},
			tenant int(11) NOT NULL,
			name varchar(100) NOT NULL,
			UNIQUE (tenant, name)
		)`, `
		CREATE TABLE IF NOT EXISTS team_member (
			team int(11) NOT NULL,
			usr int(11) NOT NULL,
			manager BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (team, usr)
		)`)

	var teamDB = &TeamDB{}
	teamDB.DB = db
	teamDB.get = mustPrepare(db, "SELECT name FROM team WHERE tenant = ? AND id = ? LIMIT 1")
	teamDB.getByName = mustPrepare(db, "SELECT id FROM team WHERE tenant = ? AND name = ? LIMIT 1")
	teamDB.getAll = mustPrepare(db, "SELECT id, name FROM team WHERE tenant = ? ORDER BY name")
	teamDB.insert = mustPrepare(db, "INSERT INTO team (tenant, name) VALUES (?, ?)")
	teamDB.join = mustPrepare(db, "INSERT INTO team_member (team, usr, manager) VALUES (?, ?, ?)")
	teamDB.members = mustPrepare(db, "SELECT COUNT(*) FROM team_member WHERE team = ? AND usr = ?") // members and managers
	return teamDB
}

func (db *TeamDB) GetTeam(tenantID, id int) (*core.Team, error) {
	var t = &core.Team{
		ID:       id,
		TenantID: tenantID,
	}
	if err := db.get.QueryRow(tenantID, id).Scan(&t.Name); err != nil {
		return nil, notFound(err, "team %d", id)
	}
	return t, nil
}

func (db *TeamDB) GetTeamByName(tenantID int, name string) (*core.Team, error) {
	var t = &core.Team{
		TenantID: tenantID,
		Name:     name,
	}
	if err := db.getByName.QueryRow(tenantID, name).Scan(&t.ID); err != nil {
		return nil, notFound(err, "team %s", name)
	}
	return t, nil
}

func (db *TeamDB) GetTeams(tenantID int) ([]*core.Team, error) {

	rows, err := db.getAll.Query(tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams = []*core.Team{}
	for rows.Next() {
		var t = &core.Team{TenantID: tenantID}
		if err = rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// InTeam returns an error wrapping core.ErrNotFound if the team does not exist in the tenant of the user.
func (db *TeamDB) InTeam(u core.DBUser, teamID int) (bool, error) {
	if _, err := db.GetTeam(u.TenantID(), teamID); err != nil {
		return false, err
	}
	var count int
	if err := db.members.QueryRow(teamID, u.ID()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *TeamDB) InsertTeam(tenantID int, name string) (*core.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("team name can't be empty")
	}
	res, err := db.insert.Exec(tenantID, name)
	if err != nil {
		return nil, fmt.Errorf("inserting team %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &core.Team{
		ID:       int(id),
		TenantID: tenantID,
		Name:     name,
	}, nil
}

func (db *TeamDB) JoinTeam(u core.DBUser, teamID int, manager bool) error {
	if _, err := db.GetTeam(u.TenantID(), teamID); err != nil {
		return err
	}
	_, err := db.join.Exec(teamID, u.ID(), manager)
	return err
}
