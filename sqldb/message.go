package sqldb

import (
	"database/sql"
	"time"

	"github.com/wansing/releasecab/core"
)

type MessageDB struct {
	*sql.DB
	getAll *sql.Stmt
	insert *sql.Stmt
}

func NewMessageDB(db *sql.DB, dialect Dialect) *MessageDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS message (
			id {{pk}},
			tenant int(11) NOT NULL,
			usr int(11) NOT NULL,
			title text NOT NULL,
			body text NOT NULL,
			created bigint NOT NULL
		)`)

	var messageDB = &MessageDB{}
	messageDB.DB = db
	messageDB.getAll = mustPrepare(db, "SELECT id, title, body, created FROM message WHERE tenant = ? AND usr = ? ORDER BY created DESC, id DESC LIMIT ? OFFSET ?")
	messageDB.insert = mustPrepare(db, "INSERT INTO message (tenant, usr, title, body, created) VALUES (?, ?, ?, ?, ?)")
	return messageDB
}

func (db *MessageDB) GetMessages(u core.DBUser, limit, offset int) ([]*core.Message, error) {

	rows, err := db.getAll.Query(u.TenantID(), u.ID(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = []*core.Message{}
	for rows.Next() {
		var m = &core.Message{
			TenantID: u.TenantID(),
			ToUser:   u.ID(),
		}
		var created int64
		if err = rows.Scan(&m.ID, &m.Title, &m.Body, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(created, 0)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (db *MessageDB) InsertMessage(m *core.Message) error {
	res, err := db.insert.Exec(m.TenantID, m.ToUser, m.Title, m.Body, m.CreatedAt.Unix())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = int(id)
	return nil
}
