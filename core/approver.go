package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// An ApproverGroup is one acceptable combination of roles and teams which satisfies the approval gate of a connection.
//
// A user matches the group if they have any of its roles and are in any of its teams.
// An empty list of roles (or teams) does not constrain the user.
type ApproverGroup struct {
	ID    int
	Roles []int
	Teams []int
}

// Empty returns true if the group neither lists roles nor teams.
func (g ApproverGroup) Empty() bool {
	return len(g.Roles) == 0 && len(g.Teams) == 0
}

// key identifies the group by content, regardless of order and database id.
func (g ApproverGroup) key() string {
	var b strings.Builder
	b.WriteString("r")
	for _, id := range g.Roles {
		b.WriteString(":" + strconv.Itoa(id))
	}
	b.WriteString("t")
	for _, id := range g.Teams {
		b.WriteString(":" + strconv.Itoa(id))
	}
	return b.String()
}

func uniqueSorted(ids []int) []int {
	var result = make([]int, 0, len(ids))
	var seen = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Ints(result)
	return result
}

// NormalizeApprovers returns a copy of groups with sorted and unique role and team ids.
// Empty groups and duplicate groups are dropped. The result is never nil.
func NormalizeApprovers(groups []ApproverGroup) []ApproverGroup {
	var result = []ApproverGroup{}
	var seen = make(map[string]struct{})
	for _, g := range groups {
		var n = ApproverGroup{
			Roles: uniqueSorted(g.Roles),
			Teams: uniqueSorted(g.Teams),
		}
		if n.Empty() {
			continue
		}
		if _, ok := seen[n.key()]; ok {
			continue
		}
		seen[n.key()] = struct{}{}
		result = append(result, n)
	}
	return result
}

// IsAuthorized returns whether the user satisfies both the role and the team constraint of the group.
//
// A group without roles and teams is satisfied by anyone.
func (c *CoreDB) IsAuthorized(u DBUser, g ApproverGroup) (bool, error) {

	if len(g.Roles) > 0 {
		var hasRole = false
		for _, roleID := range g.Roles {
			ok, err := c.UserHasRole(u, roleID)
			if err != nil {
				return false, lookupError(g, "role", roleID, err)
			}
			if ok {
				hasRole = true
				break
			}
		}
		if !hasRole {
			return false, nil
		}
	}

	if len(g.Teams) > 0 {
		var inTeam = false
		for _, teamID := range g.Teams {
			ok, err := c.UserInTeam(u, teamID)
			if err != nil {
				return false, lookupError(g, "team", teamID, err)
			}
			if ok {
				inTeam = true
				break
			}
		}
		if !inTeam {
			return false, nil
		}
	}

	return true, nil
}

// lookupError reports a missing role or team as ErrApproverIntegrity, so it is not mistaken for a missing release.
func lookupError(g ApproverGroup, kind string, id int, err error) error {
	if IsNotFound(err) {
		return fmt.Errorf("approver group %d: %s %d: %w", g.ID, kind, id, ErrApproverIntegrity)
	}
	return fmt.Errorf("approver group %d: %w", g.ID, err)
}

// IsAuthorizedForConnection returns whether the user may move the release along the connection without further approval.
func (c *CoreDB) IsAuthorizedForConnection(u DBUser, conn *Connection, r *Release) (bool, error) {

	if u == nil {
		return false, nil
	}

	var isOwner = r != nil && r.OwnerID != 0 && r.OwnerID == u.ID()

	if conn.OwnerOnly {
		return isOwner, nil
	}

	if len(conn.Approvers) == 0 {
		return true, nil // open gate
	}

	if conn.OwnerIncluded && isOwner {
		return true, nil
	}

	for _, g := range conn.Approvers {
		ok, err := c.IsAuthorized(u, g)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// ValidateApprovers checks that every role and team of the groups exists in the given tenant. Else it returns an error wrapping ErrInvalidApprover.
func (c *CoreDB) ValidateApprovers(tenantID int, groups []ApproverGroup) error {
	for _, g := range groups {
		for _, roleID := range g.Roles {
			if _, err := c.RoleDB.GetRole(tenantID, roleID); err != nil {
				if IsNotFound(err) {
					return fmt.Errorf("%w: role %d", ErrInvalidApprover, roleID)
				}
				return err
			}
		}
		for _, teamID := range g.Teams {
			if _, err := c.TeamDB.GetTeam(tenantID, teamID); err != nil {
				if IsNotFound(err) {
					return fmt.Errorf("%w: team %d", ErrInvalidApprover, teamID)
				}
				return err
			}
		}
	}
	return nil
}
