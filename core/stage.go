package core

import (
	"fmt"
	"strings"
)

// A Stage is a named step in the lifecycle of a release.
type Stage struct {
	ID                 int
	TenantID           int
	Name               string
	Description        string
	IsEndStage         bool // no outgoing connections expected
	AllowReleaseDelete bool
}

func (s *Stage) String() string {
	return s.Name
}

// A StageDB stores the stages of all tenants.
type StageDB interface {
	GetStage(tenantID, id int) (*Stage, error)
	GetStageByName(tenantID int, name string) (*Stage, error)
	GetStages(tenantID int) ([]*Stage, error)
	InsertStage(s *Stage) error // sets s.ID
	UpdateStage(s *Stage) error
}

// checkStageName trims the name and makes sure that no other stage of the tenant has it.
func (c *CoreDB) checkStageName(s *Stage) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return ErrEmptyName
	}
	other, err := c.StageDB.GetStageByName(s.TenantID, s.Name)
	switch {
	case err == nil && other.ID != s.ID:
		return ErrNameTaken
	case err == nil, IsNotFound(err):
		return nil
	default:
		return err
	}
}

// CreateStage inserts a stage into the tenant of u. Only tenant owners may do that.
func (c *CoreDB) CreateStage(u DBUser, s *Stage) error {

	if u == nil || !u.IsTenantOwner() {
		return ErrUnauthorized
	}

	s.TenantID = u.TenantID()
	if err := c.checkStageName(s); err != nil {
		return err
	}

	if err := c.StageDB.InsertStage(s); err != nil {
		return err
	}

	c.Notify(
		u,
		fmt.Sprintf("Release Stage '%s' Was Created", s.Name),
		fmt.Sprintf("Release stage '%s' was created", s.Name),
	)
	return nil
}

// EditStage shadows StageDB.UpdateStage. Only tenant owners may do that.
func (c *CoreDB) EditStage(u DBUser, s *Stage) error {

	if u == nil || !u.IsTenantOwner() || u.TenantID() != s.TenantID {
		return ErrUnauthorized
	}

	if _, err := c.StageDB.GetStage(s.TenantID, s.ID); err != nil {
		return err
	}
	if err := c.checkStageName(s); err != nil {
		return err
	}

	if err := c.StageDB.UpdateStage(s); err != nil {
		return err
	}

	c.Notify(
		u,
		fmt.Sprintf("Release Stage '%s' Was Updated", s.Name),
		fmt.Sprintf("Release stage '%s' was updated", s.Name),
	)
	return nil
}
