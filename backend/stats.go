package backend

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// stats returns the dashboard numbers of the user.
func stats(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	s, err := ctx.db.UserStats(ctx.User, time.Now())
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, struct {
		MyOpenReleases  int  `json:"my_open_releases"`
		AllOpenReleases int  `json:"all_open_releases"`
		CurrentBlackout bool `json:"current_blackout"`
	}{s.MyOpenReleases, s.AllOpenReleases, s.CurrentBlackout})
}
