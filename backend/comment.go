package backend

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/releasecab/core"
)

type commentJSON struct {
	ID        int       `json:"id"`
	Release   int       `json:"release"`
	Writer    int       `json:"writer"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func newCommentJSON(cm *core.Comment) commentJSON {
	return commentJSON{
		ID:        cm.ID,
		Release:   cm.ReleaseID,
		Writer:    cm.WriterID,
		Body:      cm.Body,
		CreatedAt: cm.CreatedAt,
	}
}

func comments(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	all, err := ctx.db.ReleaseComments(ctx.User, id)
	if err != nil {
		return err
	}

	var result = make([]commentJSON, len(all))
	for i, cm := range all {
		result[i] = newCommentJSON(cm)
	}
	return writeJSON(w, http.StatusOK, result)
}

func createComment(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	var in struct {
		Body string `json:"body"`
	}
	if err := readJSON(req, &in); err != nil {
		return err
	}

	cm, err := ctx.db.AddComment(ctx.User, id, in.Body)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, newCommentJSON(cm))
}

func deleteComment(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := idParam(params, "id")
	if err != nil {
		return err
	}

	if err := ctx.db.RemoveComment(ctx.User, id); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
