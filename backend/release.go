package backend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/releasecab/core"
)

type releaseInput struct {
	Name         *string    `json:"name"`
	Description  *string    `json:"description"`
	TicketLink   *string    `json:"ticket_link"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Environments *[]int     `json:"environments"`
	CurrentStage *int       `json:"current_stage"` // ignored on create
}

// apply returns whether any descriptive field has been set.
func (in *releaseInput) apply(r *core.Release) bool {
	var changed = false
	if in.Name != nil {
		r.Name = *in.Name
		changed = true
	}
	if in.Description != nil {
		r.Description = *in.Description
		changed = true
	}
	if in.TicketLink != nil {
		r.TicketLink = *in.TicketLink
		changed = true
	}
	if in.StartDate != nil {
		r.StartDate = *in.StartDate
		changed = true
	}
	if in.EndDate != nil {
		r.EndDate = *in.EndDate
		changed = true
	}
	if in.Environments != nil {
		r.Environments = *in.Environments
		changed = true
	}
	return changed
}

type transitionJSON struct {
	Outcome *core.Outcome `json:"outcome,omitempty"`
	Error   string        `json:"error,omitempty"`
	Release releaseJSON   `json:"release"`
}

func releases(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	limit, offset, err := pagination(req)
	if err != nil {
		return err
	}

	all, err := ctx.db.GetReleases(ctx.TenantID(), limit, offset)
	if err != nil {
		return err
	}

	var result = make([]releaseJSON, len(all))
	for i, r := range all {
		result[i] = newReleaseJSON(r)
	}
	return writeJSON(w, http.StatusOK, result)
}

func createRelease(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var in releaseInput
	if err := readJSON(req, &in); err != nil {
		return err
	}

	var r = &core.Release{}
	in.apply(r)

	if err := ctx.db.CreateRelease(ctx.User, r); err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, newReleaseJSON(r))
}

func getRelease(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	r, err := ctx.db.GetTenantRelease(ctx.User, id)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, newReleaseJSON(r))
}

// patchRelease updates the descriptive fields. If current_stage is given, a transition to that stage is requested afterwards.
func patchRelease(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	var in releaseInput
	if err := readJSON(req, &in); err != nil {
		return err
	}

	r, err := ctx.db.GetTenantRelease(ctx.User, id)
	if err != nil {
		return err
	}

	if in.apply(r) {
		if err := ctx.db.EditRelease(ctx.User, r); err != nil {
			return err
		}
	}

	if in.CurrentStage == nil {
		return writeJSON(w, http.StatusOK, transitionJSON{
			Release: newReleaseJSON(r),
		})
	}

	decision, err := ctx.db.RequestTransition(ctx.User, id, *in.CurrentStage)
	if err != nil {
		return err
	}
	return writeDecision(w, decision)
}

func approveRelease(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	decision, err := ctx.db.ApprovePending(ctx.User, id)
	if err != nil {
		return err
	}
	return writeDecision(w, decision)
}

// writeDecision responds with 200 to approved and pending transitions, and with 409 to rejected ones.
func writeDecision(w http.ResponseWriter, d core.Decision) error {
	var resp = transitionJSON{
		Outcome: &d.Outcome,
		Release: newReleaseJSON(&d.Release),
	}
	if d.Outcome == core.RejectedNoConnection {
		resp.Error = fmt.Sprintf("no connection from stage %d to the requested stage", d.Release.CurrentStage)
		return writeJSON(w, http.StatusConflict, resp)
	}
	return writeJSON(w, http.StatusOK, resp)
}

func deleteRelease(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	r, err := ctx.db.GetTenantRelease(ctx.User, id)
	if err != nil {
		return err
	}

	if err := ctx.db.RemoveRelease(ctx.User, r); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func nextStages(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	r, err := ctx.db.GetTenantRelease(ctx.User, id)
	if err != nil {
		return err
	}

	reachable, err := ctx.db.ReachableStages(r, ctx.User)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newReachableJSON(reachable))
}
