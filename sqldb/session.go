package sqldb

import (
	"database/sql"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// NewSessionStore creates the sessions table in the given database and returns a session store which uses it.
func NewSessionStore(db *sql.DB, dialect Dialect) scs.Store {

	switch dialect {
	case MySQL:
		mustCreate(db, dialect, `
			CREATE TABLE IF NOT EXISTS sessions (
				token CHAR(43) PRIMARY KEY,
				data BLOB NOT NULL,
				expiry TIMESTAMP(6) NOT NULL,
				INDEX sessions_expiry_idx (expiry)
			)`)
		return mysqlstore.New(db)
	default:
		mustCreate(db, dialect, `
			CREATE TABLE IF NOT EXISTS sessions (
				token TEXT PRIMARY KEY,
				data BLOB NOT NULL,
				expiry REAL NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry)`)
		return sqlite3store.New(db)
	}
}
