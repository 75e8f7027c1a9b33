package httpapi

import (
	"errors"
	"net/http"

	"authgrid.org/internal/audit"
	"authgrid.org/internal/oauth2"
	"authgrid.org/internal/obs"
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed form body")
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	next := r.FormValue("next")
	if next == "" {
		next = "/"
	}

	session, err := a.svc.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, oauth2.ErrUnauthorized) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "login unavailable")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cookie.Name,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	_ = audit.LogEvent(r.Context(), "sso.login", map[string]any{
		"user_id":    session.UserID,
		"session_id": session.ID,
	})

	http.Redirect(w, r, next, http.StatusTemporaryRedirect)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	session, ok := a.sessionFromCookie(w, r)
	if !ok {
		return
	}

	revoked, err := a.svc.Logout(r.Context(), session)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "logout unavailable")
		return
	}
	for i := 0; i < revoked; i++ {
		obs.SessionRevoked()
	}

	// Delete the cookie outright rather than letting it expire.
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	_ = audit.LogEvent(r.Context(), "sso.logout", map[string]any{
		"user_id":          session.UserID,
		"sessions_revoked": revoked,
	})

	writeJSON(w, http.StatusOK, map[string]any{"logout": "global"})
}

// sessionFromCookie resolves the SSO cookie to a live session, writing the
// failure response on its own.
func (a *API) sessionFromCookie(w http.ResponseWriter, r *http.Request) (oauth2.Session, bool) {
	cookie, err := r.Cookie(a.cookie.Name)
	if err != nil || cookie.Value == "" {
		writeError(w, r, http.StatusUnauthorized, "session cookie missing")
		return oauth2.Session{}, false
	}
	session, err := a.svc.CurrentSession(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, oauth2.ErrUnauthorized) {
			writeError(w, r, http.StatusUnauthorized, "session invalid")
			return oauth2.Session{}, false
		}
		writeError(w, r, http.StatusServiceUnavailable, "session lookup unavailable")
		return oauth2.Session{}, false
	}
	return session, true
}
