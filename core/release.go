package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/wansing/releasecab/util"
)

// A Release moves through the stages of its tenant.
//
// PendingApproval is true if and only if NextStage is not zero.
type Release struct {
	ID              int
	TenantID        int
	Identifier      string // like "REL01234"
	Name            string
	Description     string
	TicketLink      string
	StartDate       time.Time
	EndDate         time.Time
	CreatedAt       time.Time
	Environments    []int
	OwnerID         int
	CurrentStage    int
	PendingApproval bool
	NextStage       int // zero if nothing is pending
}

// ReleaseState is the state of a release in the stage-transition state machine.
type ReleaseState int

const (
	Stable ReleaseState = iota
	AwaitingApproval
)

func (s ReleaseState) String() string {
	switch s {
	case Stable:
		return "stable"
	case AwaitingApproval:
		return "awaiting approval"
	}
	return "unknown"
}

func (r *Release) State() ReleaseState {
	if r.PendingApproval {
		return AwaitingApproval
	}
	return Stable
}

// advance moves the release to the given stage and clears any pending approval.
func (r *Release) advance(stageID int) {
	r.CurrentStage = stageID
	r.PendingApproval = false
	r.NextStage = 0
}

// await keeps the current stage and records the requested stage.
func (r *Release) await(stageID int) {
	r.PendingApproval = true
	r.NextStage = stageID
}

// sameStageState returns whether both releases agree on the fields which the transition engine writes.
func sameStageState(a, b *Release) bool {
	return a.CurrentStage == b.CurrentStage && a.PendingApproval == b.PendingApproval && a.NextStage == b.NextStage
}

type ReleaseDB interface {
	DeleteRelease(r *Release) error
	GetRelease(tenantID, id int) (*Release, error)
	GetReleaseByIdentifier(identifier string) (*Release, error)
	GetReleases(tenantID int, limit, offset int) ([]*Release, error)
	InsertRelease(r *Release) error // sets r.ID
	UpdateRelease(r *Release) error // descriptive fields and environments, not the stage fields

	// CountOpenReleases counts the releases of the tenant whose current stage is not an end stage.
	// If ownerID is not zero, only releases of that owner are counted.
	CountOpenReleases(tenantID, ownerID int) (int, error)

	// UpdateReleaseState writes the stage fields of after, but only if the stored stage fields still equal those of before.
	// Else it returns ErrConflict.
	UpdateReleaseState(before, after *Release) error
}

func validateDates(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return ErrInvalidDates
	}
	return nil
}

// CreateRelease inserts a new release owned by u. It starts at the initial stage of the tenant.
func (c *CoreDB) CreateRelease(u DBUser, r *Release) error {

	if u == nil {
		return ErrUnauthorized
	}

	tenant, err := c.TenantDB.GetTenant(u.TenantID())
	if err != nil {
		return err
	}
	if tenant.InitialStage == 0 {
		return fmt.Errorf("tenant %s has no initial stage", tenant.Name)
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrEmptyName
	}

	if err := c.checkSchedule(u.TenantID(), r); err != nil {
		return err
	}

	r.TenantID = u.TenantID()
	r.OwnerID = u.ID()
	r.CurrentStage = tenant.InitialStage
	r.PendingApproval = false
	r.NextStage = 0
	r.CreatedAt = time.Now()

	r.Identifier, err = c.uniqueIdentifier()
	if err != nil {
		return err
	}

	return c.ReleaseDB.InsertRelease(r)
}

func (c *CoreDB) uniqueIdentifier() (string, error) {
	for i := 0; i < 100; i++ {
		digits, err := util.RandomDigits(5)
		if err != nil {
			return "", err
		}
		var identifier = "REL" + digits
		_, err = c.ReleaseDB.GetReleaseByIdentifier(identifier)
		switch {
		case err == nil:
			continue // taken
		case IsNotFound(err):
			return identifier, nil
		default:
			return "", err
		}
	}
	return "", fmt.Errorf("could not find a free release identifier")
}

// EditRelease shadows ReleaseDB.UpdateRelease. It validates dates and blackouts.
func (c *CoreDB) EditRelease(u DBUser, r *Release) error {
	if u == nil || u.TenantID() != r.TenantID {
		return ErrUnauthorized
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrEmptyName
	}
	if err := c.checkSchedule(r.TenantID, r); err != nil {
		return err
	}
	return c.ReleaseDB.UpdateRelease(r)
}

// RemoveRelease shadows ReleaseDB.DeleteRelease.
// The owner or a tenant owner can delete a release if its current stage allows it.
func (c *CoreDB) RemoveRelease(u DBUser, r *Release) error {

	if u == nil || u.TenantID() != r.TenantID {
		return ErrUnauthorized
	}
	if u.ID() != r.OwnerID && !u.IsTenantOwner() {
		return ErrUnauthorized
	}

	stage, err := c.StageDB.GetStage(r.TenantID, r.CurrentStage)
	if err != nil {
		return err
	}
	if !stage.AllowReleaseDelete {
		return ErrNotDeletable
	}

	return c.ReleaseDB.DeleteRelease(r)
}

// IsDeletable returns whether the current stage of the release allows deleting it.
func (c *CoreDB) IsDeletable(r *Release) bool {
	stage, err := c.StageDB.GetStage(r.TenantID, r.CurrentStage)
	if err != nil {
		return false
	}
	return stage.AllowReleaseDelete
}
