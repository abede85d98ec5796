package sqldb

import (
	"database/sql"

	"github.com/wansing/releasecab/core"
)

type CommentDB struct {
	*sql.DB
	delete *sql.Stmt
	get    *sql.Stmt
	getAll *sql.Stmt
	insert *sql.Stmt
}

func NewCommentDB(db *sql.DB, dialect Dialect) *CommentDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS rls_comment (
			id {{pk}},
			tenant int(11) NOT NULL,
			rls int(11) NOT NULL,
			writer int(11) NOT NULL,
			body text NOT NULL,
			created bigint NOT NULL
		)`)

	var commentDB = &CommentDB{}
	commentDB.DB = db
	commentDB.delete = mustPrepare(db, "DELETE FROM rls_comment WHERE tenant = ? AND id = ?")
	commentDB.get = mustPrepare(db, "SELECT id, tenant, rls, writer, body, created FROM rls_comment WHERE tenant = ? AND id = ? LIMIT 1")
	commentDB.getAll = mustPrepare(db, "SELECT id, tenant, rls, writer, body, created FROM rls_comment WHERE tenant = ? AND rls = ? ORDER BY created DESC, id DESC")
	commentDB.insert = mustPrepare(db, "INSERT INTO rls_comment (tenant, rls, writer, body, created) VALUES (?, ?, ?, ?, ?)")
	return commentDB
}

func scanComment(row scanner) (*core.Comment, error) {
	var cm = &core.Comment{}
	var created int64
	if err := row.Scan(&cm.ID, &cm.TenantID, &cm.ReleaseID, &cm.WriterID, &cm.Body, &created); err != nil {
		return nil, err
	}
	cm.CreatedAt = fromUnix(created)
	return cm, nil
}

func (db *CommentDB) DeleteComment(cm *core.Comment) error {
	_, err := db.delete.Exec(cm.TenantID, cm.ID)
	return err
}

func (db *CommentDB) GetComment(tenantID, id int) (*core.Comment, error) {
	cm, err := scanComment(db.get.QueryRow(tenantID, id))
	if err != nil {
		return nil, notFound(err, "comment %d", id)
	}
	return cm, nil
}

func (db *CommentDB) GetComments(tenantID, releaseID int) ([]*core.Comment, error) {

	rows, err := db.getAll.Query(tenantID, releaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments = []*core.Comment{}
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, cm)
	}
	return comments, rows.Err()
}

func (db *CommentDB) InsertComment(cm *core.Comment) error {
	res, err := db.insert.Exec(cm.TenantID, cm.ReleaseID, cm.WriterID, cm.Body, unix(cm.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	cm.ID = int(id)
	return nil
}
