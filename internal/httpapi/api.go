// Package httpapi is the HTTP layer: route dispatch, authentication,
// role filtering and error mapping on top of the identity and custody
// services.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"custodia.org/internal/auth"
	"custodia.org/internal/blob"
	"custodia.org/internal/custody"
	"custodia.org/internal/obs"
)

const maxBodyBytes = 10 << 20 // uploads included

// ReadyProbe checks readiness (pings the DB when one is configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP surface.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth    *auth.Service
	custody custody.Service
	blobs   blob.Store
	webDir  string

	rateBurst  int
	ratePerSec int
}

// New wires routes over the given services. webDir holds the static
// front-end entry document; an empty value disables the fallback.
func New(rp ReadyProbe, version string, authSvc *auth.Service, custodySvc custody.Service, blobs blob.Store, webDir string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		auth:       authSvc,
		custody:    custodySvc,
		blobs:      blobs,
		webDir:     webDir,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// identity
	a.mux.HandleFunc("/api/register", a.handleRegister)
	a.mux.HandleFunc("/api/login", a.handleLogin)

	// custody
	a.mux.HandleFunc("/api/assets", a.handleAssets)
	a.mux.HandleFunc("/api/documents", a.handleDocuments)
	a.mux.HandleFunc("/api/requests", a.handleRequests)

	// admin review
	a.mux.Handle("/api/admin/requests", RequireRole(auth.RoleAdmin)(http.HandlerFunc(a.handleAdminRequests)))
	a.mux.Handle("/api/admin/requests/", RequireRole(auth.RoleAdmin)(http.HandlerFunc(a.handleAdminRequestResource)))

	// every remaining GET serves the front-end entry document
	a.mux.HandleFunc("/", a.handleRoot)

	return a
}

// ConfigureRateLimit overrides the default per-client token bucket.
func (a *API) ConfigureRateLimit(burst, perSec int) {
	if burst > 0 {
		a.rateBurst = burst
	}
	if perSec > 0 {
		a.ratePerSec = perSec
	}
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, maxBodyBytes)
	h = LoggingJSON(h)
	h = RequestID(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "custodia-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// handleRoot serves the static front-end entry document for any path
// outside /api; unknown /api paths are a JSON 404.
func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.webDir == "" {
		http.NotFound(w, r)
		return
	}
	entry := filepath.Join(a.webDir, "index.html")
	if _, err := os.Stat(entry); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, entry)
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
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
