package backend

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/releasecab/sqldb"
)

var ErrLogin = errors.New("wrong username or password")

type loginData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func login(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var data loginData
	if err := readJSON(req, &data); err != nil {
		return err
	}

	if err := ctx.Login(data.Email, data.Password); err != nil {
		if errors.Is(err, sqldb.ErrAuth) {
			return writeJSON(w, http.StatusUnauthorized, map[string]string{"error": ErrLogin.Error()})
		}
		return err
	}

	return writeJSON(w, http.StatusOK, newUserJSON(ctx.User))
}
