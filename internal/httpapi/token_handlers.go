package httpapi

import (
	"errors"
	"net/http"

	"authgrid.org/internal/audit"
	"authgrid.org/internal/oauth2"
)

func (a *API) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed form body")
		return
	}
	result, err := a.svc.Introspect(r.Context(), r.PostFormValue("token"))
	if err != nil {
		if errors.Is(err, oauth2.ErrStoreUnavailable) {
			writeError(w, r, http.StatusServiceUnavailable, "introspection unavailable")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRevoke implements RFC 7009: the response never discloses whether the
// presented token was valid, known or already revoked.
func (a *API) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed form body")
		return
	}
	if err := a.svc.RevokeToken(r.Context(), r.PostFormValue("token")); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "revocation unavailable")
		return
	}
	_ = audit.LogEvent(r.Context(), "oauth.token.revoked", nil)
	writeJSON(w, http.StatusOK, map[string]any{"revoked": true})
}

func (a *API) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, _, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sub":   claims.Subject,
		"scope": claims.Scope,
		"iss":   claims.Issuer,
	})
}

// handleExampleData is a sample protected resource requiring the read scope.
func (a *API) handleExampleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, r, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	if !requireScope(w, r, "read") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": "protected resource",
		"sub":  claims.Subject,
	})
}
