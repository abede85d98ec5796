package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/releasecab/core"
)

type connectionInput struct {
	From          int            `json:"from"` // ignored on update
	To            int            `json:"to"`   // ignored on update
	OwnerOnly     bool           `json:"owner_only"`
	OwnerIncluded bool           `json:"owner_included"`
	Approvers     []approverJSON `json:"approvers"`
}

func (in *connectionInput) groups() []core.ApproverGroup {
	var groups = make([]core.ApproverGroup, len(in.Approvers))
	for i, a := range in.Approvers {
		groups[i] = core.ApproverGroup{
			Roles: a.Roles,
			Teams: a.Teams,
		}
	}
	return groups
}

func connections(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	all, err := ctx.db.GetConnections(ctx.TenantID())
	if err != nil {
		return err
	}

	var result = make([]connectionJSON, len(all))
	for i, conn := range all {
		result[i] = newConnectionJSON(conn)
	}
	return writeJSON(w, http.StatusOK, result)
}

func createConnection(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var in connectionInput
	if err := readJSON(req, &in); err != nil {
		return err
	}

	conn, err := ctx.db.CreateConnection(ctx.User, in.From, in.To, in.OwnerOnly, in.OwnerIncluded, in.groups())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, newConnectionJSON(conn))
}

func updateConnection(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	var in connectionInput
	if err := readJSON(req, &in); err != nil {
		return err
	}

	conn, err := ctx.db.GetConnection(ctx.TenantID(), id)
	if err != nil {
		return err
	}

	if err := ctx.db.UpdateApprovers(ctx.User, conn, in.OwnerOnly, in.OwnerIncluded, in.groups()); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newConnectionJSON(conn))
}

func deleteConnection(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	conn, err := ctx.db.GetConnection(ctx.TenantID(), id)
	if err != nil {
		return err
	}

	if err := ctx.db.RemoveConnection(ctx.User, conn); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
