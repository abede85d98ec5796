package backend

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/releasecab/core"
)

func stages(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	all, err := ctx.db.GetStages(ctx.TenantID())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newStagesJSON(all))
}

// toStages lists the stages which can be reached from the given stage. The optional query parameter "release" is used for owner checks.
func toStages(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	stageID, err := idParam(params, "id")
	if err != nil {
		return err
	}

	var release *core.Release
	if s := req.URL.Query().Get("release"); s != "" {
		releaseID, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: invalid release", errBadRequest)
		}
		if release, err = ctx.db.GetTenantRelease(ctx.User, releaseID); err != nil {
			return err
		}
	}

	reachable, err := ctx.db.ReachableFrom(ctx.TenantID(), stageID, release, ctx.User)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newReachableJSON(reachable))
}

func environments(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	all, err := ctx.db.GetEnvironments(ctx.TenantID())
	if err != nil {
		return err
	}

	type environmentJSON struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	var result = make([]environmentJSON, len(all))
	for i, e := range all {
		result[i] = environmentJSON{e.ID, e.Name}
	}
	return writeJSON(w, http.StatusOK, result)
}

type stageInput struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	IsEndStage         bool   `json:"is_end_stage"`
	AllowReleaseDelete bool   `json:"allow_release_delete"`
}

func (in stageInput) apply(s *core.Stage) {
	s.Name = in.Name
	s.Description = in.Description
	s.IsEndStage = in.IsEndStage
	s.AllowReleaseDelete = in.AllowReleaseDelete
}

func createStage(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var in stageInput
	if err := readJSON(req, &in); err != nil {
		return err
	}

	var s = &core.Stage{}
	in.apply(s)
	if err := ctx.db.CreateStage(ctx.User, s); err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, newStageJSON(s))
}

func updateStage(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	var in stageInput
	if err := readJSON(req, &in); err != nil {
		return err
	}

	s, err := ctx.db.GetStage(ctx.TenantID(), id)
	if err != nil {
		return err
	}
	in.apply(s)
	if err := ctx.db.EditStage(ctx.User, s); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newStageJSON(s))
}

type releaseConfigJSON struct {
	InitialStage *int `json:"initial_stage"`
}

func releaseConfig(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	tenant, err := ctx.db.GetTenant(ctx.TenantID())
	if err != nil {
		return err
	}
	var out releaseConfigJSON
	if tenant.InitialStage != 0 {
		out.InitialStage = &tenant.InitialStage
	}
	return writeJSON(w, http.StatusOK, out)
}

func updateReleaseConfig(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var in releaseConfigJSON
	if err := readJSON(req, &in); err != nil {
		return err
	}
	if in.InitialStage == nil || *in.InitialStage <= 0 {
		return fmt.Errorf("%w: initial_stage is required", errBadRequest)
	}

	tenant, err := ctx.db.ConfigureInitialStage(ctx.User, *in.InitialStage)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, releaseConfigJSON{InitialStage: &tenant.InitialStage})
}
