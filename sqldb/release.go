package sqldb

import (
	"database/sql"

	"github.com/wansing/releasecab/core"
)

const releaseColumns = "id, tenant, identifier, name, description, ticket_link, start_date, end_date, created, owner, current_stage, pending_approval, next_stage"

type ReleaseDB struct {
	*sql.DB
	clearComments     *sql.Stmt
	clearEnvironments *sql.Stmt
	countOpen         *sql.Stmt
	delete            *sql.Stmt
	environments      *sql.Stmt
	get               *sql.Stmt
	getAll            *sql.Stmt
	getByIdentifier   *sql.Stmt
	insert            *sql.Stmt
	pushEnvironment   *sql.Stmt
	update            *sql.Stmt
	updateState       *sql.Stmt
}

func NewReleaseDB(db *sql.DB, dialect Dialect) *ReleaseDB {

	// "release" is a reserved word in MySQL
	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS rls (
			id {{pk}},
			tenant int(11) NOT NULL,
			identifier varchar(16) NOT NULL,
			name varchar(200) NOT NULL,
			description text NOT NULL,
			ticket_link varchar(500) NOT NULL DEFAULT '',
			start_date bigint NOT NULL DEFAULT 0,
			end_date bigint NOT NULL DEFAULT 0,
			created bigint NOT NULL,
			owner int(11) NOT NULL,
			current_stage int(11) NOT NULL,
			pending_approval BOOLEAN NOT NULL DEFAULT 0,
			next_stage int(11) NULL,
			UNIQUE (identifier)
		)`, `
		CREATE TABLE IF NOT EXISTS rls_environment (
			rls int(11) NOT NULL,
			environment int(11) NOT NULL,
			PRIMARY KEY (rls, environment)
		)`)

	var releaseDB = &ReleaseDB{}
	releaseDB.DB = db
	releaseDB.clearComments = mustPrepare(db, "DELETE FROM rls_comment WHERE rls = ?")
	releaseDB.clearEnvironments = mustPrepare(db, "DELETE FROM rls_environment WHERE rls = ?")
	releaseDB.countOpen = mustPrepare(db, "SELECT COUNT(*) FROM rls r JOIN stage s ON s.id = r.current_stage WHERE r.tenant = ? AND s.is_end_stage = 0 AND (? = 0 OR r.owner = ?)")
	releaseDB.delete = mustPrepare(db, "DELETE FROM rls WHERE tenant = ? AND id = ?")
	releaseDB.environments = mustPrepare(db, "SELECT environment FROM rls_environment WHERE rls = ? ORDER BY environment")
	releaseDB.get = mustPrepare(db, "SELECT "+releaseColumns+" FROM rls WHERE tenant = ? AND id = ? LIMIT 1")
	releaseDB.getAll = mustPrepare(db, "SELECT "+releaseColumns+" FROM rls WHERE tenant = ? ORDER BY created DESC, id DESC LIMIT ? OFFSET ?")
	releaseDB.getByIdentifier = mustPrepare(db, "SELECT "+releaseColumns+" FROM rls WHERE identifier = ? LIMIT 1")
	releaseDB.insert = mustPrepare(db, "INSERT INTO rls (tenant, identifier, name, description, ticket_link, start_date, end_date, created, owner, current_stage, pending_approval, next_stage) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	releaseDB.pushEnvironment = mustPrepare(db, "INSERT INTO rls_environment (rls, environment) VALUES (?, ?)")
	releaseDB.update = mustPrepare(db, "UPDATE rls SET name = ?, description = ?, ticket_link = ?, start_date = ?, end_date = ? WHERE tenant = ? AND id = ?")
	releaseDB.updateState = mustPrepare(db, "UPDATE rls SET current_stage = ?, pending_approval = ?, next_stage = ? WHERE tenant = ? AND id = ? AND current_stage = ? AND pending_approval = ? AND COALESCE(next_stage, 0) = ?")
	return releaseDB
}

func nextStage(id int) sql.NullInt64 {
	return sql.NullInt64{
		Int64: int64(id),
		Valid: id != 0,
	}
}

func scanRelease(row scanner) (*core.Release, error) {
	var r = &core.Release{}
	var start, end, created int64
	var next sql.NullInt64
	err := row.Scan(&r.ID, &r.TenantID, &r.Identifier, &r.Name, &r.Description, &r.TicketLink, &start, &end, &created, &r.OwnerID, &r.CurrentStage, &r.PendingApproval, &next)
	if err != nil {
		return nil, err
	}
	r.StartDate = fromUnix(start)
	r.EndDate = fromUnix(end)
	r.CreatedAt = fromUnix(created)
	if next.Valid {
		r.NextStage = int(next.Int64)
	}
	return r, nil
}

func (db *ReleaseDB) loadEnvironments(r *core.Release) error {
	rows, err := db.environments.Query(r.ID)
	if err != nil {
		return err
	}
	r.Environments, err = ints(rows)
	return err
}

func (db *ReleaseDB) DeleteRelease(r *core.Release) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Stmt(db.clearComments).Exec(r.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Stmt(db.clearEnvironments).Exec(r.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Stmt(db.delete).Exec(r.TenantID, r.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *ReleaseDB) CountOpenReleases(tenantID, ownerID int) (int, error) {
	var n int
	return n, db.countOpen.QueryRow(tenantID, ownerID, ownerID).Scan(&n)
}

func (db *ReleaseDB) GetRelease(tenantID, id int) (*core.Release, error) {
	r, err := scanRelease(db.get.QueryRow(tenantID, id))
	if err != nil {
		return nil, notFound(err, "release %d", id)
	}
	return r, db.loadEnvironments(r)
}

func (db *ReleaseDB) GetReleaseByIdentifier(identifier string) (*core.Release, error) {
	r, err := scanRelease(db.getByIdentifier.QueryRow(identifier))
	if err != nil {
		return nil, notFound(err, "release %s", identifier)
	}
	return r, db.loadEnvironments(r)
}

func (db *ReleaseDB) GetReleases(tenantID int, limit, offset int) ([]*core.Release, error) {

	rows, err := db.getAll.Query(tenantID, limit, offset)
	if err != nil {
		return nil, err
	}

	var releases = []*core.Release{}
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		releases = append(releases, r)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range releases {
		if err = db.loadEnvironments(r); err != nil {
			return nil, err
		}
	}
	return releases, nil
}

func (db *ReleaseDB) InsertRelease(r *core.Release) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	res, err := tx.Stmt(db.insert).Exec(r.TenantID, r.Identifier, r.Name, r.Description, r.TicketLink, unix(r.StartDate), unix(r.EndDate), unix(r.CreatedAt), r.OwnerID, r.CurrentStage, r.PendingApproval, nextStage(r.NextStage))
	if err != nil {
		tx.Rollback()
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return err
	}

	for _, env := range r.Environments {
		if _, err = tx.Stmt(db.pushEnvironment).Exec(id, env); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	r.ID = int(id)
	return nil
}

func (db *ReleaseDB) UpdateRelease(r *core.Release) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Stmt(db.update).Exec(r.Name, r.Description, r.TicketLink, unix(r.StartDate), unix(r.EndDate), r.TenantID, r.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Stmt(db.clearEnvironments).Exec(r.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	for _, env := range r.Environments {
		if _, err = tx.Stmt(db.pushEnvironment).Exec(r.ID, env); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// UpdateReleaseState is a compare-and-set on the stage fields.
// Callers must not call it if before and after agree on them, because MySQL reports zero affected rows then.
func (db *ReleaseDB) UpdateReleaseState(before, after *core.Release) error {
	res, err := db.updateState.Exec(
		after.CurrentStage, after.PendingApproval, nextStage(after.NextStage),
		before.TenantID, before.ID, before.CurrentStage, before.PendingApproval, before.NextStage,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrConflict
	}
	return nil
}
