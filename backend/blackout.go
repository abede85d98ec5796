package backend

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/releasecab/core"
)

type blackoutInput struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Environments []int     `json:"environments"`
}

func blackouts(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	all, err := ctx.db.GetBlackouts(ctx.TenantID())
	if err != nil {
		return err
	}

	var result = make([]blackoutJSON, len(all))
	for i, b := range all {
		result[i] = newBlackoutJSON(b)
	}
	return writeJSON(w, http.StatusOK, result)
}

func createBlackout(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var in blackoutInput
	if err := readJSON(req, &in); err != nil {
		return err
	}

	var b = &core.Blackout{}
	in.apply(b)
	if err := ctx.db.CreateBlackout(ctx.User, b); err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, newBlackoutJSON(b))
}

func (in blackoutInput) apply(b *core.Blackout) {
	b.Name = in.Name
	b.Description = in.Description
	b.StartDate = in.StartDate
	b.EndDate = in.EndDate
	b.Environments = in.Environments
}

func getBlackout(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	b, err := ctx.db.GetBlackout(ctx.TenantID(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newBlackoutJSON(b))
}

func updateBlackout(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	var in blackoutInput
	if err := readJSON(req, &in); err != nil {
		return err
	}

	b, err := ctx.db.GetBlackout(ctx.TenantID(), id)
	if err != nil {
		return err
	}
	in.apply(b)
	if err := ctx.db.EditBlackout(ctx.User, b); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newBlackoutJSON(b))
}

// deleteBlackout works only before the blackout has started.
func deleteBlackout(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	b, err := ctx.db.GetBlackout(ctx.TenantID(), id)
	if err != nil {
		return err
	}
	if err := ctx.db.RemoveBlackout(ctx.User, b, time.Now()); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
