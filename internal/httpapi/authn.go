package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"authgrid.org/internal/oauth2"
	"authgrid.org/internal/obs"
	"authgrid.org/internal/token"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// authenticate verifies the request's bearer token, including session
// liveness for session-bound tokens, and writes the failure response itself.
// On success the returned request carries the verified subject and scope in
// its context. The returned bool reports whether the caller may proceed.
func (a *API) authenticate(w http.ResponseWriter, r *http.Request) (token.Claims, *http.Request, bool) {
	raw, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		obs.TokenVerified("invalid")
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return token.Claims{}, r, false
	}

	claims, err := a.svc.VerifyToken(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, oauth2.ErrTokenExpired):
			obs.TokenVerified("expired")
			writeError(w, r, http.StatusUnauthorized, "token expired")
		case errors.Is(err, oauth2.ErrSessionRevoked):
			obs.TokenVerified("session_revoked")
			writeError(w, r, http.StatusUnauthorized, "session revoked")
		case errors.Is(err, oauth2.ErrSessionExpired):
			obs.TokenVerified("session_expired")
			writeError(w, r, http.StatusUnauthorized, "session expired")
		case errors.Is(err, oauth2.ErrStoreUnavailable):
			obs.TokenVerified("error")
			writeError(w, r, http.StatusServiceUnavailable, "verification unavailable")
		default:
			obs.TokenVerified("invalid")
			writeError(w, r, http.StatusUnauthorized, "invalid token")
		}
		return token.Claims{}, r, false
	}
	obs.TokenVerified("ok")
	r = r.WithContext(oauth2.ContextWithSubject(r.Context(), claims.Subject, claims.Scope))
	return claims, r, true
}

// requireScope checks the verified scope set against the required value.
func requireScope(w http.ResponseWriter, r *http.Request, scope string) bool {
	if oauth2.HasScope(r.Context(), scope) {
		return true
	}
	writeError(w, r, http.StatusForbidden, "insufficient scope")
	return false
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	tok := strings.TrimSpace(header[len(bearer):])
	if tok == "" {
		return "", errors.New("missing bearer token")
	}
	return tok, nil
}
