package core

import (
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
)

type CoreDB struct {
	BlackoutDB
	CommentDB
	ConnectionDB
	EnvironmentDB
	MessageDB
	ReleaseDB
	RoleDB
	StageDB
	TeamDB
	TenantDB
	UserDB
	SessionManager *scs.SessionManager

	notifications sync.WaitGroup
}

// SessionConfig holds the session settings which are not hard-coded.
type SessionConfig struct {
	IdleTimeout time.Duration
	Lifetime    time.Duration
}

// Init creates the session manager.
func (c *CoreDB) Init(sessionStore scs.Store, cookiePath string, conf SessionConfig) {

	if conf.IdleTimeout == 0 {
		conf.IdleTimeout = 12 * time.Hour
	}
	if conf.Lifetime == 0 {
		conf.Lifetime = 720 * time.Hour
	}

	c.SessionManager = scs.New()
	c.SessionManager.Store = sessionStore
	c.SessionManager.Cookie.Path = cookiePath + "/"
	c.SessionManager.Cookie.Persist = false
	c.SessionManager.Cookie.SameSite = http.SameSiteLaxMode // GET requests don't modify anything
	c.SessionManager.Cookie.Secure = false                  // else running on localhost or behind a http proxy fails
	c.SessionManager.IdleTimeout = conf.IdleTimeout
	c.SessionManager.Lifetime = conf.Lifetime
}

// GetTenantRelease shadows ReleaseDB.GetRelease and takes the tenant from the user.
func (c *CoreDB) GetTenantRelease(u DBUser, id int) (*Release, error) {
	if u == nil {
		return nil, ErrUnauthorized
	}
	return c.ReleaseDB.GetRelease(u.TenantID(), id)
}

// GetReleaseStage returns the current stage of the release.
func (c *CoreDB) GetReleaseStage(r *Release) (*Stage, error) {
	return c.StageDB.GetStage(r.TenantID, r.CurrentStage)
}
