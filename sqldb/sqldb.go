// Package sqldb implements the database interfaces of package core with database/sql.
//
// The statements are written for SQLite and MySQL. Tables are created in the New* functions if they don't exist.
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wansing/releasecab/core"
)

// Dialect is the name of a database/sql driver.
type Dialect string

const (
	MySQL   Dialect = "mysql"
	SQLite3 Dialect = "sqlite3"
)

// ParseDialect returns an error if the driver is not supported.
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case MySQL, SQLite3:
		return Dialect(driver), nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// primaryKey returns the column definition of an auto-incrementing integer primary key.
func (d Dialect) primaryKey() string {
	if d == MySQL {
		return "INTEGER PRIMARY KEY AUTO_INCREMENT"
	}
	return "INTEGER PRIMARY KEY"
}

// mustCreate executes the statements one by one, because the MySQL driver does not support multiple statements per Exec by default.
// The placeholder {{pk}} is replaced by the primary key definition of the dialect.
func mustCreate(db *sql.DB, dialect Dialect, stmts ...string) {
	for _, stmt := range stmts {
		stmt = strings.ReplaceAll(stmt, "{{pk}}", dialect.primaryKey())
		if _, err := db.Exec(stmt); err != nil {
			panic(fmt.Errorf("creating table: %w", err))
		}
	}
}

func mustPrepare(db *sql.DB, query string) *sql.Stmt {
	stmt, err := db.Prepare(query)
	if err != nil {
		panic(fmt.Errorf("preparing %q: %w", query, err))
	}
	return stmt
}

// notFound translates sql.ErrNoRows to core.ErrNotFound.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, core.ErrNotFound)...)
	}
	return err
}

// Open creates all databases and assembles them in a CoreDB. The session manager is not initialized.
func Open(db *sql.DB, dialect Dialect) *core.CoreDB {
	var stageDB = NewStageDB(db, dialect)     // connection and release queries join the stage table
	var commentDB = NewCommentDB(db, dialect) // release deletion clears rls_comment
	return &core.CoreDB{
		BlackoutDB:    NewBlackoutDB(db, dialect),
		CommentDB:     commentDB,
		ConnectionDB:  NewConnectionDB(db, dialect),
		EnvironmentDB: NewEnvironmentDB(db, dialect),
		MessageDB:     NewMessageDB(db, dialect),
		ReleaseDB:     NewReleaseDB(db, dialect),
		RoleDB:        NewRoleDB(db, dialect),
		StageDB:       stageDB,
		TeamDB:        NewTeamDB(db, dialect),
		TenantDB:      NewTenantDB(db, dialect),
		UserDB:        NewUserDB(db, dialect),
	}
}

func ints(rows *sql.Rows) ([]int, error) {
	defer rows.Close()
	var result = []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

// unix returns zero for the zero time.
func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
