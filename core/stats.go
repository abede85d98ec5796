package core

import (
	"time"
)

// Stats are shown on the dashboard of a user.
type Stats struct {
	MyOpenReleases  int  // owned by the user, not in an end stage
	AllOpenReleases int  // in the tenant, not in an end stage
	CurrentBlackout bool // a blackout of the tenant is active at the given time
}

// UserStats counts the open releases of u and its tenant.
func (c *CoreDB) UserStats(u DBUser, now time.Time) (*Stats, error) {

	if u == nil {
		return nil, ErrUnauthorized
	}

	var stats = &Stats{}
	var err error

	if stats.MyOpenReleases, err = c.ReleaseDB.CountOpenReleases(u.TenantID(), u.ID()); err != nil {
		return nil, err
	}
	if stats.AllOpenReleases, err = c.ReleaseDB.CountOpenReleases(u.TenantID(), 0); err != nil {
		return nil, err
	}

	blackouts, err := c.BlackoutDB.GetBlackouts(u.TenantID())
	if err != nil {
		return nil, err
	}
	for _, b := range blackouts {
		if b.Overlaps(now, now) {
			stats.CurrentBlackout = true
			break
		}
	}

	return stats, nil
}
