package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// messages returns the communication log of the user, newest first.
func messages(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	limit, offset, err := pagination(req)
	if err != nil {
		return err
	}

	all, err := ctx.db.GetMessages(ctx.User, limit, offset)
	if err != nil {
		return err
	}

	var result = make([]messageJSON, len(all))
	for i, m := range all {
		result[i] = messageJSON{
			ID:        m.ID,
			Title:     m.Title,
			Body:      m.Body,
			CreatedAt: m.CreatedAt,
		}
	}
	return writeJSON(w, http.StatusOK, result)
}
