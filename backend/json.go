package backend

import (
	"time"

	"github.com/wansing/releasecab/core"
)

type userJSON struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	Tenant      int    `json:"tenant"`
	TenantOwner bool   `json:"tenant_owner"`
}

func newUserJSON(u core.DBUser) userJSON {
	return userJSON{
		ID:          u.ID(),
		Email:       u.Name(),
		Tenant:      u.TenantID(),
		TenantOwner: u.IsTenantOwner(),
	}
}

type stageJSON struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	IsEndStage         bool   `json:"is_end_stage"`
	AllowReleaseDelete bool   `json:"allow_release_delete"`
}

func newStageJSON(s *core.Stage) stageJSON {
	return stageJSON{
		ID:                 s.ID,
		Name:               s.Name,
		Description:        s.Description,
		IsEndStage:         s.IsEndStage,
		AllowReleaseDelete: s.AllowReleaseDelete,
	}
}

func newStagesJSON(stages []*core.Stage) []stageJSON {
	var result = make([]stageJSON, len(stages))
	for i, s := range stages {
		result[i] = newStageJSON(s)
	}
	return result
}

type reachableJSON struct {
	WithApproval    []stageJSON `json:"with_approval"`
	WithoutApproval []stageJSON `json:"without_approval"`
}

func newReachableJSON(r *core.Reachable) reachableJSON {
	return reachableJSON{
		WithApproval:    newStagesJSON(r.WithApproval),
		WithoutApproval: newStagesJSON(r.WithoutApproval),
	}
}

type approverJSON struct {
	ID    int   `json:"id,omitempty"`
	Roles []int `json:"roles"`
	Teams []int `json:"teams"`
}

type connectionJSON struct {
	ID            int            `json:"id"`
	From          stageJSON      `json:"from"`
	To            stageJSON      `json:"to"`
	OwnerOnly     bool           `json:"owner_only"`
	OwnerIncluded bool           `json:"owner_included"`
	Approvers     []approverJSON `json:"approvers"`
}

func newConnectionJSON(conn *core.Connection) connectionJSON {
	var approvers = make([]approverJSON, len(conn.Approvers))
	for i, g := range conn.Approvers {
		approvers[i] = approverJSON{
			ID:    g.ID,
			Roles: nonNil(g.Roles),
			Teams: nonNil(g.Teams),
		}
	}
	return connectionJSON{
		ID:            conn.ID,
		From:          newStageJSON(&conn.From),
		To:            newStageJSON(&conn.To),
		OwnerOnly:     conn.OwnerOnly,
		OwnerIncluded: conn.OwnerIncluded,
		Approvers:     approvers,
	}
}

type releaseJSON struct {
	ID              int        `json:"id"`
	Identifier      string     `json:"identifier"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	TicketLink      string     `json:"ticket_link"`
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	CreatedAt       time.Time  `json:"created_at"`
	Environments    []int      `json:"environments"`
	Owner           int        `json:"owner"`
	CurrentStage    int        `json:"current_stage"`
	PendingApproval bool       `json:"pending_approval"`
	NextStage       *int       `json:"next_stage"`
	State           string     `json:"state"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func newReleaseJSON(r *core.Release) releaseJSON {
	var next *int
	if r.NextStage != 0 {
		var id = r.NextStage
		next = &id
	}
	return releaseJSON{
		ID:              r.ID,
		Identifier:      r.Identifier,
		Name:            r.Name,
		Description:     r.Description,
		TicketLink:      r.TicketLink,
		StartDate:       optionalTime(r.StartDate),
		EndDate:         optionalTime(r.EndDate),
		CreatedAt:       r.CreatedAt,
		Environments:    nonNil(r.Environments),
		Owner:           r.OwnerID,
		CurrentStage:    r.CurrentStage,
		PendingApproval: r.PendingApproval,
		NextStage:       next,
		State:           r.State().String(),
	}
}

type blackoutJSON struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Environments []int     `json:"environments"`
	Owner        int       `json:"owner"`
}

func newBlackoutJSON(b *core.Blackout) blackoutJSON {
	return blackoutJSON{
		ID:           b.ID,
		Name:         b.Name,
		Description:  b.Description,
		StartDate:    b.StartDate,
		EndDate:      b.EndDate,
		Environments: nonNil(b.Environments),
		Owner:        b.OwnerID,
	}
}

type messageJSON struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
