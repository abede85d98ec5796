// Package backend serves the JSON API of releasecab.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/wansing/releasecab/core"
)

var (
	ErrAuth       = errors.New("unauthorized")
	errBadRequest = errors.New("bad request")
)

// context is passed to every handler
type context struct {
	db        *core.CoreDB
	req       *http.Request
	requestID string
	User      core.DBUser // nil if not logged in
}

func (ctx *context) LoggedIn() bool {
	return ctx.User != nil
}

func (ctx *context) Login(email, password string) error {
	u, err := ctx.db.LoginUser(email, password)
	if err != nil {
		return err
	}
	if err := ctx.db.SessionManager.RenewToken(ctx.req.Context()); err != nil {
		return err
	}
	ctx.db.SessionManager.Put(ctx.req.Context(), "uid", u.ID())
	ctx.User = u
	return nil
}

func (ctx *context) Logout() error {
	if err := ctx.db.SessionManager.RenewToken(ctx.req.Context()); err != nil {
		return err
	}
	ctx.db.SessionManager.Remove(ctx.req.Context(), "uid")
	ctx.User = nil
	return nil
}

// TenantID returns zero if nobody is logged in.
func (ctx *context) TenantID() int {
	if ctx.User == nil {
		return 0
	}
	return ctx.User.TenantID()
}

func middleware(db *core.CoreDB, requireLoggedIn bool, f func(http.ResponseWriter, *http.Request, *context, httprouter.Params) error) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var ctx = &context{
			db:        db,
			req:       req,
			requestID: req.Header.Get("X-Request-Id"),
		}
		if ctx.requestID == "" {
			ctx.requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", ctx.requestID)

		if uid := db.SessionManager.GetInt(req.Context(), "uid"); uid != 0 {
			if u, err := db.GetUser(uid); err == nil {
				ctx.User = u
			} else {
				db.SessionManager.Remove(req.Context(), "uid") // user has been deleted
			}
		}

		if requireLoggedIn && !ctx.LoggedIn() {
			writeError(w, http.StatusUnauthorized, ErrAuth)
			return
		}

		if err := f(w, req, ctx, params); err != nil {
			var status = statusCode(err)
			if status == http.StatusInternalServerError {
				log.Printf("[%s] %s %s: %v", ctx.requestID, req.Method, req.URL.Path, err)
			}
			writeError(w, status, err)
		}
	}
}

// NewBackendRouter returns the handler of the JSON API.
func NewBackendRouter(db *core.CoreDB) http.Handler {

	var router = httprouter.New()

	// public
	router.POST("/login", middleware(db, false, login))

	// private
	router.POST("/logout", middleware(db, true, logout))
	router.GET("/releases", middleware(db, true, releases))
	router.POST("/releases", middleware(db, true, createRelease))
	router.GET("/releases/:id", middleware(db, true, getRelease))
	router.PATCH("/releases/:id", middleware(db, true, patchRelease))
	router.DELETE("/releases/:id", middleware(db, true, deleteRelease))
	router.POST("/releases/:id/approve", middleware(db, true, approveRelease))
	router.GET("/releases/:id/next-stages", middleware(db, true, nextStages))
	router.GET("/releases/:id/comments", middleware(db, true, comments))
	router.POST("/releases/:id/comments", middleware(db, true, createComment))
	router.DELETE("/comments/:id", middleware(db, true, deleteComment))
	router.GET("/release-config", middleware(db, true, releaseConfig))
	router.PUT("/release-config", middleware(db, true, updateReleaseConfig))
	router.GET("/stages", middleware(db, true, stages))
	router.POST("/stages", middleware(db, true, createStage))
	router.PUT("/stages/:id", middleware(db, true, updateStage))
	router.GET("/stages/:id/to-stages", middleware(db, true, toStages))
	router.GET("/environments", middleware(db, true, environments))
	router.GET("/connections", middleware(db, true, connections))
	router.POST("/connections", middleware(db, true, createConnection))
	router.PUT("/connections/:id", middleware(db, true, updateConnection))
	router.DELETE("/connections/:id", middleware(db, true, deleteConnection))
	router.GET("/blackouts", middleware(db, true, blackouts))
	router.POST("/blackouts", middleware(db, true, createBlackout))
	router.GET("/blackouts/:id", middleware(db, true, getBlackout))
	router.PUT("/blackouts/:id", middleware(db, true, updateBlackout))
	router.DELETE("/blackouts/:id", middleware(db, true, deleteBlackout))
	router.GET("/messages", middleware(db, true, messages))
	router.GET("/stats", middleware(db, true, stats))

	return router
}

// statusCode maps errors from package core to HTTP status codes.
func statusCode(err error) int {
	var blackoutErr *core.BlackoutError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyComment),
		errors.Is(err, core.ErrNameTaken),
		errors.Is(err, core.ErrInvalidDates),
		errors.Is(err, core.ErrInvalidApprover),
		errors.As(err, &blackoutErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict),
		errors.Is(err, core.ErrNotPending),
		errors.Is(err, core.ErrNotDeletable),
		errors.Is(err, core.ErrBlackoutStarted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	var msg = err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status) // don't leak internals
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(req *http.Request, v interface{}) error {
	var dec = json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func idParam(params httprouter.Params, name string) (int, error) {
	id, err := strconv.Atoi(params.ByName(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// pagination reads "limit" and "offset" from the query string.
func pagination(req *http.Request) (limit, offset int, err error) {
	limit = 50
	if s := req.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit <= 0 || limit > 1000 {
			return 0, 0, fmt.Errorf("%w: invalid limit", errBadRequest)
		}
	}
	if s := req.URL.Query().Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("%w: invalid offset", errBadRequest)
		}
	}
	return limit, offset, nil
}
