package routes

import (
	"net/http"

	"github.com/purposewaze/form-studio/httpx"
	"github.com/purposewaze/form-studio/log"
	"github.com/purposewaze/form-studio/routes/middlewares"
)

// userID pulls the authenticated user id out of the token claims,
// replying 401 on its own when the claims are unusable.
func userID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := middlewares.UserID(r)
	if !ok {
		httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.claims")
		return 0, false
	}
	return id, true
}

func userEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := middlewares.UserEmail(r)
	if !ok {
		httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.claims")
		return "", false
	}
	return email, true
}
