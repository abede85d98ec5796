package sqldb

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/wansing/releasecab/core"
	"golang.org/x/crypto/bcrypt"
)

var ErrAuth = errors.New("authentication failed")

func clean(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	return name
}

type user struct {
	id          int
	name        string
	tenantID    int
	tenantOwner bool
	pass        []byte // bcrypt hash, empty if no password has been set
}

func (u *user) ID() int {
	return u.id
}

func (u *user) Name() string {
	return u.name
}

func (u *user) TenantID() int {
	return u.tenantID
}

func (u *user) IsTenantOwner() bool {
	return u.tenantOwner
}

type UserDB struct {
	*sql.DB
	get         *sql.Stmt
	getByName   *sql.Stmt
	getAll      *sql.Stmt
	insert      *sql.Stmt
	setPassword *sql.Stmt
}

func NewUserDB(db *sql.DB, dialect Dialect) *UserDB {

	mustCreate(db, dialect, `
		CREATE TABLE IF NOT EXISTS usr (
			id {{pk}},
			tenant int(11) NOT NULL,
			mail varchar(128) NOT NULL,
			password varchar(64) NOT NULL DEFAULT '',
			tenant_owner BOOLEAN NOT NULL DEFAULT 0,
			UNIQUE (mail)
		)`)

	var userDB = &UserDB{}
	userDB.DB = db
	userDB.get = mustPrepare(db, "SELECT mail, tenant, tenant_owner, password FROM usr WHERE id = ? LIMIT 1")
	userDB.getByName = mustPrepare(db, "SELECT id, tenant, tenant_owner, password FROM usr WHERE mail = ? LIMIT 1")
	userDB.getAll = mustPrepare(db, "SELECT id, mail, tenant_owner FROM usr WHERE tenant = ? ORDER BY mail")
	userDB.insert = mustPrepare(db, "INSERT INTO usr (tenant, mail, tenant_owner) VALUES (?, ?, ?)") // empty password field is safe because no bcrypt hash equals it
	userDB.setPassword = mustPrepare(db, "UPDATE usr SET password = ? WHERE id = ?")
	return userDB
}

func (db *UserDB) ChangePassword(u core.DBUser, old, new string) error {
	stored, err := db.GetUser(u.ID())
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(stored.(*user).pass, []byte(old)) != nil {
		return ErrAuth
	}
	return db.SetPassword(u, new)
}

// GetUser returns an error wrapping core.ErrNotFound if the user does not exist.
func (db *UserDB) GetUser(id int) (core.DBUser, error) {
	var u = &user{
		id: id,
	}
	var pass string
	if err := db.get.QueryRow(id).Scan(&u.name, &u.tenantID, &u.tenantOwner, &pass); err != nil {
		return nil, notFound(err, "user %d", id)
	}
	u.pass = []byte(pass)
	return u, nil
}

func (db *UserDB) GetUserByName(name string) (core.DBUser, error) {
	var u = &user{
		name: clean(name),
	}
	var pass string
	if err := db.getByName.QueryRow(u.name).Scan(&u.id, &u.tenantID, &u.tenantOwner, &pass); err != nil {
		return nil, notFound(err, "user %s", u.name)
	}
	u.pass = []byte(pass)
	return u, nil
}

func (db *UserDB) GetUsers(tenantID int) ([]core.DBUser, error) {

	rows, err := db.getAll.Query(tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []core.DBUser{}
	for rows.Next() {
		var u = &user{tenantID: tenantID}
		if err = rows.Scan(&u.id, &u.name, &u.tenantOwner); err != nil {
			return nil, err
		}
		all = append(all, u)
	}
	return all, rows.Err()
}

func (db *UserDB) InsertUser(tenantID int, name string, tenantOwner bool) (core.DBUser, error) {
	name = clean(name)
	if name == "" {
		return nil, errors.New("user name can't be empty")
	}
	res, err := db.insert.Exec(tenantID, name, tenantOwner)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &user{
		id:          int(id),
		name:        name,
		tenantID:    tenantID,
		tenantOwner: tenantOwner,
	}, nil
}

func (db *UserDB) LoginUser(name, password string) (core.DBUser, error) {

	u, err := db.GetUserByName(name)
	if core.IsNotFound(err) {
		return nil, ErrAuth // user not found
	}
	if err != nil {
		return nil, err
	}

	var hash = u.(*user).pass
	if len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return nil, ErrAuth // no or wrong password
	}

	return u, nil
}

func (db *UserDB) SetPassword(u core.DBUser, password string) error {

	if password == "" {
		return errors.New("no password given")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err = db.setPassword.Exec(string(hash), u.ID()); err != nil {
		return err
	}

	if u, ok := u.(*user); ok {
		u.pass = hash
	}
	return nil
}
