package core

import (
	"bytes"
	"fmt"
)

// A Connection is a directed edge between two stages of a tenant. It carries its own authorization policy.
type Connection struct {
	ID            int
	TenantID      int
	From          Stage
	To            Stage
	OwnerOnly     bool            // only the release owner may move along, approvers are ignored
	OwnerIncluded bool            // the release owner may move along in addition to the approvers
	Approvers     []ApproverGroup // empty means open to everyone, never nil
}

func (conn *Connection) String() string {
	var buf bytes.Buffer
	buf.WriteString(conn.From.Name)
	buf.WriteString(" -> ")
	buf.WriteString(conn.To.Name)
	switch {
	case conn.OwnerOnly:
		buf.WriteString(" (owner only)")
	case len(conn.Approvers) > 0:
		fmt.Fprintf(&buf, " (%d approver groups", len(conn.Approvers))
		if conn.OwnerIncluded {
			buf.WriteString(", owner included")
		}
		buf.WriteString(")")
	}
	return buf.String()
}

// A ConnectionDB is the stage graph of all tenants.
type ConnectionDB interface {
	// ConnectionBetween returns false if there is no connection. If there are several, the oldest one is returned.
	ConnectionBetween(tenantID, fromStageID, toStageID int) (*Connection, bool, error)
	DeleteConnection(conn *Connection) error
	GetConnection(tenantID, id int) (*Connection, error)
	GetConnections(tenantID int) ([]*Connection, error)
	InsertConnection(conn *Connection) error // sets conn.ID, stores the approvers too
	Outgoing(tenantID, fromStageID int) ([]*Connection, error)
	UpdateConnection(conn *Connection, groups []ApproverGroup) error // flags and approvers in one transaction, reloads conn.Approvers
}

// UpdateApprovers normalizes and validates the approver groups, then replaces the approvers of the connection.
// Only tenant owners may do that.
func (c *CoreDB) UpdateApprovers(u DBUser, conn *Connection, ownerOnly, ownerIncluded bool, groups []ApproverGroup) error {

	if u == nil || !u.IsTenantOwner() || u.TenantID() != conn.TenantID {
		return ErrUnauthorized
	}

	groups = NormalizeApprovers(groups)
	if err := c.ValidateApprovers(conn.TenantID, groups); err != nil {
		return err
	}

	var updated = *conn
	updated.OwnerOnly = ownerOnly
	updated.OwnerIncluded = ownerIncluded
	if err := c.ConnectionDB.UpdateConnection(&updated, groups); err != nil {
		return err
	}
	*conn = updated

	c.Notify(
		u,
		fmt.Sprintf("Release Connection from '%s' to '%s' Was Updated", conn.From.Name, conn.To.Name),
		fmt.Sprintf("Release connection from '%s' to '%s' was updated", conn.From.Name, conn.To.Name),
	)
	return nil
}

// RemoveConnection shadows ConnectionDB.DeleteConnection. Only tenant owners may do that.
func (c *CoreDB) RemoveConnection(u DBUser, conn *Connection) error {

	if u == nil || !u.IsTenantOwner() || u.TenantID() != conn.TenantID {
		return ErrUnauthorized
	}

	if err := c.ConnectionDB.DeleteConnection(conn); err != nil {
		return err
	}

	c.Notify(
		u,
		fmt.Sprintf("Release Connection from '%s' to '%s' Was Deleted", conn.From.Name, conn.To.Name),
		fmt.Sprintf("Release connection from '%s' to '%s' was deleted", conn.From.Name, conn.To.Name),
	)
	return nil
}

// CreateConnection inserts a connection between two stages of the tenant of u. Only tenant owners may do that.
func (c *CoreDB) CreateConnection(u DBUser, fromStageID, toStageID int, ownerOnly, ownerIncluded bool, groups []ApproverGroup) (*Connection, error) {

	if u == nil || !u.IsTenantOwner() {
		return nil, ErrUnauthorized
	}

	from, err := c.StageDB.GetStage(u.TenantID(), fromStageID)
	if err != nil {
		return nil, err
	}
	to, err := c.StageDB.GetStage(u.TenantID(), toStageID)
	if err != nil {
		return nil, err
	}

	groups = NormalizeApprovers(groups)
	if err := c.ValidateApprovers(u.TenantID(), groups); err != nil {
		return nil, err
	}

	var conn = &Connection{
		TenantID:      u.TenantID(),
		From:          *from,
		To:            *to,
		OwnerOnly:     ownerOnly,
		OwnerIncluded: ownerIncluded,
		Approvers:     groups,
	}
	if err := c.ConnectionDB.InsertConnection(conn); err != nil {
		return nil, err
	}
	return conn, nil
}
