package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"authgrid.org/internal/audit"
	"authgrid.org/internal/oauth2"
	"authgrid.org/internal/obs"
	"authgrid.org/internal/token"
)

// Pinger is the connectivity probe of the session cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks downstream stores for the readiness endpoint.
type ReadyProbe struct {
	DB    *sql.DB
	Cache Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Cache != nil {
		if err := rp.Cache.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CookieConfig controls the SSO session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// API is the HTTP layer of the authorization server.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	svc        *oauth2.Service
	tokens     *token.Manager
	cookie     CookieConfig

	rateBurst  int
	ratePerSec int
}

// New wires handlers onto a fresh mux.
func New(rp ReadyProbe, version string, svc *oauth2.Service, tokens *token.Manager, cookie CookieConfig) *API {
	if cookie.Name == "" {
		cookie.Name = "sso_session"
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		svc:        svc,
		tokens:     tokens,
		cookie:     cookie,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	a.mux.HandleFunc("/v1/sso/login", a.handleLogin)
	a.mux.HandleFunc("/v1/sso/logout", a.handleLogout)

	a.mux.HandleFunc("/v1/oauth/authorize", a.handleAuthorize)
	a.mux.HandleFunc("/v1/oauth/token", a.handleToken)
	a.mux.HandleFunc("/v1/oauth/introspect", a.handleIntrospect)
	a.mux.HandleFunc("/v1/oauth/revoke", a.handleRevoke)
	a.mux.HandleFunc("/v1/oauth/userinfo", a.handleUserinfo)
	a.mux.HandleFunc("/v1/oauth/jwks.json", a.handleJWKS)

	a.mux.HandleFunc("/v1/example/data", a.handleExampleData)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the mux wrapped with the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = obs.Instrument(h)
	h = RequestID(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authgrid-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "authgrid-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) handleJWKS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	doc, err := a.tokens.JWKS()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "jwks unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(doc)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeOAuthError renders RFC 6749 token endpoint errors.
func writeOAuthError(w http.ResponseWriter, code int, oauthCode, description string) {
	writeJSON(w, code, map[string]any{
		"error":             oauthCode,
		"error_description": description,
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
