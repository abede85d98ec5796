package core

import (
	"sort"
)

// Reachable contains the stages which a user can move a release to.
type Reachable struct {
	WithApproval    []*Stage // someone else has to approve
	WithoutApproval []*Stage // the user can move the release right away
}

type stageSet map[int]*Stage

func (set stageSet) add(s Stage) {
	if _, ok := set[s.ID]; !ok {
		set[s.ID] = &s
	}
}

func (set stageSet) sorted() []*Stage {
	var stages = make([]*Stage, 0, len(set))
	for _, s := range set {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool {
		return stages[i].ID < stages[j].ID
	})
	return stages
}

// ReachableStages returns the stages which can be reached from the current stage of the release.
func (c *CoreDB) ReachableStages(r *Release, u DBUser) (*Reachable, error) {
	return c.reachable(r.TenantID, r.CurrentStage, r, u)
}

// ReachableFrom returns the stages which can be reached from the given stage.
// If release is nil, nobody is considered the owner, so owner-only connections are left out.
func (c *CoreDB) ReachableFrom(tenantID, fromStageID int, release *Release, u DBUser) (*Reachable, error) {
	if _, err := c.StageDB.GetStage(tenantID, fromStageID); err != nil {
		return nil, err
	}
	if release == nil {
		release = &Release{
			TenantID:     tenantID,
			CurrentStage: fromStageID,
		}
	}
	return c.reachable(tenantID, fromStageID, release, u)
}

func (c *CoreDB) reachable(tenantID, fromStageID int, r *Release, u DBUser) (*Reachable, error) {

	defer reachabilityQueriesTotal.Inc()

	conns, err := c.ConnectionDB.Outgoing(tenantID, fromStageID)
	if err != nil {
		return nil, err
	}

	var with = make(stageSet)
	var without = make(stageSet)

	for _, conn := range conns {

		if conn.OwnerOnly {
			// non-owners don't see owner-only connections at all
			if u != nil && r.OwnerID != 0 && r.OwnerID == u.ID() {
				without.add(conn.To)
			}
			continue
		}

		authorized, err := c.IsAuthorizedForConnection(u, conn, r)
		if err != nil {
			return nil, err
		}
		if authorized {
			without.add(conn.To)
		} else {
			with.add(conn.To)
		}
	}

	return &Reachable{
		WithApproval:    with.sorted(),
		WithoutApproval: without.sorted(),
	}, nil
}
