package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	"authgrid.org/internal/audit"
	"authgrid.org/internal/oauth2"
	"authgrid.org/internal/obs"
)

func (a *API) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	cookie, err := r.Cookie(a.cookie.Name)
	if err != nil || cookie.Value == "" {
		a.redirectToLogin(w, r)
		return
	}
	session, err := a.svc.CurrentSession(r.Context(), cookie.Value)
	if errors.Is(err, oauth2.ErrUnauthorized) {
		a.redirectToLogin(w, r)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "session lookup unavailable")
		return
	}

	q := r.URL.Query()
	req := oauth2.AuthorizeRequest{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		UserID:              session.UserID,
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	code, err := a.svc.IssueAuthorizationCode(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, oauth2.ErrInvalidRequest):
			writeError(w, r, http.StatusBadRequest, "unsupported response_type")
		case errors.Is(err, oauth2.ErrInvalidClient):
			writeError(w, r, http.StatusBadRequest, "unknown client")
		case errors.Is(err, oauth2.ErrInvalidRedirectURI):
			writeError(w, r, http.StatusBadRequest, "redirect_uri not registered")
		case errors.Is(err, oauth2.ErrStoreUnavailable):
			writeError(w, r, http.StatusServiceUnavailable, "authorization unavailable")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "oauth.code.issued", map[string]any{
		"client_id": req.ClientID,
		"user_id":   session.UserID,
	})

	target, err := url.Parse(req.RedirectURI)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "redirect_uri not parseable")
		return
	}
	values := target.Query()
	values.Set("code", code)
	if state := q.Get("state"); state != "" {
		values.Set("state", state)
	}
	target.RawQuery = values.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (a *API) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	login := url.URL{
		Path:     "/v1/sso/login",
		RawQuery: url.Values{"next": {r.URL.String()}}.Encode(),
	}
	http.Redirect(w, r, login.String(), http.StatusFound)
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	grant := r.PostFormValue("grant_type")
	var (
		resp oauth2.TokenResponse
		err  error
	)
	switch grant {
	case oauth2.GrantAuthorizationCode:
		resp, err = a.svc.ExchangeAuthorizationCode(r.Context(), oauth2.ExchangeRequest{
			ClientID:     r.PostFormValue("client_id"),
			ClientSecret: r.PostFormValue("client_secret"),
			Code:         r.PostFormValue("code"),
			RedirectURI:  r.PostFormValue("redirect_uri"),
			CodeVerifier: r.PostFormValue("code_verifier"),
		})
	case oauth2.GrantRefreshToken:
		resp, err = a.svc.Refresh(r.Context(), r.PostFormValue("client_id"), r.PostFormValue("refresh_token"))
	case oauth2.GrantClientCredentials:
		resp, err = a.svc.ClientCredentials(r.Context(),
			r.PostFormValue("client_id"), r.PostFormValue("client_secret"), r.PostFormValue("scope"))
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant_type")
		return
	}
	if err != nil {
		writeTokenError(w, err)
		return
	}

	obs.TokenIssued(grant)
	_ = audit.LogEvent(r.Context(), "oauth.token.issued", map[string]any{
		"grant":     grant,
		"client_id": r.PostFormValue("client_id"),
	})
	writeJSON(w, http.StatusOK, resp)
}

func writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, oauth2.ErrInvalidRequest):
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "invalid request")
	case errors.Is(err, oauth2.ErrInvalidClient), errors.Is(err, oauth2.ErrInvalidClientCredentials):
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
	case errors.Is(err, oauth2.ErrInvalidGrant):
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "grant is invalid, expired or already used")
	case errors.Is(err, oauth2.ErrSessionRevoked):
		writeOAuthError(w, http.StatusUnauthorized, "invalid_grant", "session revoked")
	case errors.Is(err, oauth2.ErrSessionExpired):
		writeOAuthError(w, http.StatusUnauthorized, "invalid_grant", "session expired")
	case errors.Is(err, oauth2.ErrStoreUnavailable):
		writeOAuthError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "store unavailable")
	default:
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
