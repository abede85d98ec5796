package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// A Blackout blocks releases in its environments during its time range.
type Blackout struct {
	ID           int
	TenantID     int
	Name         string
	Description  string
	StartDate    time.Time
	EndDate      time.Time
	Environments []int
	OwnerID      int
}

// Overlaps returns whether the blackout overlaps with the closed interval [start, end].
func (b *Blackout) Overlaps(start, end time.Time) bool {
	return !b.StartDate.After(end) && !b.EndDate.Before(start)
}

// Affects returns whether the blackout shares at least one environment with the given ones.
func (b *Blackout) Affects(environments []int) bool {
	for _, have := range b.Environments {
		for _, want := range environments {
			if have == want {
				return true
			}
		}
	}
	return false
}

type BlackoutDB interface {
	DeleteBlackout(b *Blackout) error
	GetBlackout(tenantID, id int) (*Blackout, error)
	GetBlackouts(tenantID int) ([]*Blackout, error)
	InsertBlackout(b *Blackout) error // sets b.ID
	UpdateBlackout(b *Blackout) error // including environments
}

// OverlappingBlackouts returns the blackouts of the tenant which overlap with the given time range in any of the given environments.
func (c *CoreDB) OverlappingBlackouts(tenantID int, start, end time.Time, environments []int) ([]*Blackout, error) {
	all, err := c.BlackoutDB.GetBlackouts(tenantID)
	if err != nil {
		return nil, err
	}
	var result []*Blackout
	for _, b := range all {
		if b.Overlaps(start, end) && b.Affects(environments) {
			result = append(result, b)
		}
	}
	return result, nil
}

// checkSchedule validates the dates and environments of a release and returns a *BlackoutError if it overlaps with blackouts.
func (c *CoreDB) checkSchedule(tenantID int, r *Release) error {

	if err := validateDates(r.StartDate, r.EndDate); err != nil {
		return err
	}

	if err := c.ValidateEnvironments(tenantID, r.Environments); err != nil {
		return err
	}

	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return nil
	}

	overlapping, err := c.OverlappingBlackouts(tenantID, r.StartDate, r.EndDate, r.Environments)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		var names = make([]string, len(overlapping))
		for i, b := range overlapping {
			names[i] = b.Name
		}
		sort.Strings(names)
		return &BlackoutError{Names: names}
	}
	return nil
}

func (c *CoreDB) checkBlackout(tenantID int, b *Blackout) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return ErrEmptyName
	}
	if !b.StartDate.Before(b.EndDate) {
		return ErrInvalidDates
	}
	return c.ValidateEnvironments(tenantID, b.Environments)
}

// CreateBlackout inserts a blackout owned by u. Only tenant owners may do that.
func (c *CoreDB) CreateBlackout(u DBUser, b *Blackout) error {

	if u == nil || !u.IsTenantOwner() {
		return ErrUnauthorized
	}
	if err := c.checkBlackout(u.TenantID(), b); err != nil {
		return err
	}

	b.TenantID = u.TenantID()
	b.OwnerID = u.ID()
	if err := c.BlackoutDB.InsertBlackout(b); err != nil {
		return err
	}

	c.Notify(
		u,
		fmt.Sprintf("Blackout '%s' Was Created", b.Name),
		fmt.Sprintf("Blackout '%s' was created", b.Name),
	)
	return nil
}

// mayChangeBlackout returns whether u is a tenant owner and has created the blackout.
func mayChangeBlackout(u DBUser, b *Blackout) bool {
	return u != nil && u.IsTenantOwner() && u.TenantID() == b.TenantID && u.ID() == b.OwnerID
}

// EditBlackout shadows BlackoutDB.UpdateBlackout. Only the tenant owner who created the blackout may edit it.
func (c *CoreDB) EditBlackout(u DBUser, b *Blackout) error {

	if !mayChangeBlackout(u, b) {
		return ErrUnauthorized
	}
	if err := c.checkBlackout(b.TenantID, b); err != nil {
		return err
	}

	if err := c.BlackoutDB.UpdateBlackout(b); err != nil {
		return err
	}

	c.Notify(
		u,
		fmt.Sprintf("Blackout '%s' Was Updated", b.Name),
		fmt.Sprintf("Blackout '%s' was updated", b.Name),
	)
	return nil
}

// RemoveBlackout shadows BlackoutDB.DeleteBlackout. Only the tenant owner who created the blackout may delete it,
// and only before it starts.
func (c *CoreDB) RemoveBlackout(u DBUser, b *Blackout, now time.Time) error {

	if !mayChangeBlackout(u, b) {
		return ErrUnauthorized
	}
	if !now.Before(b.StartDate) {
		return ErrBlackoutStarted
	}

	if err := c.BlackoutDB.DeleteBlackout(b); err != nil {
		return err
	}

	c.Notify(
		u,
		fmt.Sprintf("Blackout '%s' Was Deleted", b.Name),
		fmt.Sprintf("Blackout '%s' was deleted", b.Name),
	)
	return nil
}
