// Package router wires HTTP requests to the DAV handlers: path parsing,
// authentication, per-method dispatch and request logging.
package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkondrat/portaldav/internal/auth"
	"github.com/pkondrat/portaldav/internal/config"
	"github.com/pkondrat/portaldav/internal/dav"
	"github.com/pkondrat/portaldav/internal/metrics"

	"github.com/rs/zerolog"
)

const (
	davCapabilities = "1, 3, calendar-access, addressbook"
	allowedMethods  = "OPTIONS, PROPFIND, REPORT, GET, PUT, DELETE"
)

type Router struct {
	config   *config.Config
	handlers *dav.Handlers
	basic    *auth.BasicAuth
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func New(cfg *config.Config, h *dav.Handlers, basic *auth.BasicAuth, m *metrics.Metrics, metricsHandler http.Handler, logger zerolog.Logger) http.Handler {
	r := &Router{
		config:   cfg,
		handlers: h,
		basic:    basic,
		metrics:  m,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/caldav", h.HandleWellKnown)
	mux.HandleFunc("/.well-known/carddav", h.HandleWellKnown)
	mux.HandleFunc("/healthz", r.handleHealth)
	if cfg.MetricsEnabled && metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	base := r.basePath()
	mux.HandleFunc(base, r.handleDAV)
	mux.HandleFunc(strings.TrimSuffix(base, "/"), r.handleDAV)

	return mux
}

func (r *Router) basePath() string {
	base := r.config.HTTP.BasePath
	if base == "" || base[0] != '/' {
		base = "/dav"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleDAV(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}

	rt := dav.ParsePath(strings.TrimSuffix(r.basePath(), "/"), req.URL.Path)
	r.dispatch(rec, req, rt)

	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.Observe(req.Method, rt.Kind.String(), statusOrDefault(rec.status), elapsed)
	}

	evt := r.logger.Info()
	if req.Method == "PROPFIND" || req.Method == "REPORT" || req.Method == http.MethodGet {
		evt = r.logger.Debug()
	}
	evt.Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("route", rt.Kind.String()).
		Int("status", statusOrDefault(rec.status)).
		Int("bytes", rec.bytes).
		Float64("duration_ms", float64(elapsed.Microseconds())/1000.0).
		Str("ip", realIP(req)).
		Str("user_agent", req.Header.Get("User-Agent")).
		Msg("http request")
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request, rt dav.Route) {
	w.Header().Set("DAV", davCapabilities)
	w.Header().Set("Allow", allowedMethods)

	// OPTIONS is public for capability discovery.
	if req.Method == http.MethodOptions {
		r.handlers.HandleOptions(w, req, rt)
		return
	}

	principal, err := r.basic.Authenticate(req.Context(), req.Header.Get("Authorization"))
	if err != nil {
		r.logger.Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("ip", realIP(req)).
			Msg("auth failed")
		w.Header().Set("WWW-Authenticate", `Basic realm="WebDAV"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	req = req.WithContext(auth.WithPrincipal(req.Context(), principal))

	// A path addressing another user's namespace is rejected before any
	// lookups. Per-resource ownership is still enforced in the handlers.
	if rt.Username != "" && rt.Username != principal.Username {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	switch req.Method {
	case "PROPFIND":
		r.handlers.HandlePropfind(w, req, rt)
	case "REPORT":
		r.handlers.HandleReport(w, req, rt)
	case http.MethodGet:
		r.handlers.HandleGet(w, req, rt)
	case http.MethodPut:
		r.handlers.HandlePut(w, req, rt)
	case http.MethodDelete:
		r.handlers.HandleDelete(w, req, rt)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
