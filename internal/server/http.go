package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/flag-practice/internal/auth"
	"github.com/gokatarajesh/flag-practice/internal/catalog"
	"github.com/gokatarajesh/flag-practice/internal/config"
	"github.com/gokatarajesh/flag-practice/internal/logging"
	"github.com/gokatarajesh/flag-practice/internal/practice"
	httperrors "github.com/gokatarajesh/flag-practice/pkg/http/errors"
)

const requestTimeout = 30 * time.Second

// Handlers groups the feature handlers mounted on the router.
type Handlers struct {
	Catalog    *catalog.HTTPHandler
	Practice   *practice.HTTPHandler
	PracticeWS *practice.WSHandler
	Metrics    http.Handler
	// Ping checks upstream dependencies for /v1/ping.
	Ping func(ctx context.Context) error
}

// NewUpgrader accepts WebSocket handshakes from the configured CORS origins.
func NewUpgrader(cfg config.CORS) websocket.Upgrader {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	wildcard := false
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard {
				return true
			}
			if allowed[origin] {
				return true
			}
			// same-origin clients
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// NewRouter wires ops routes and the versioned API.
func NewRouter(cfg *config.App, logger zerolog.Logger, tokens auth.TokenValidator, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "route not found")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			if h.Ping != nil {
				if err := h.Ping(r.Context()); err != nil {
					log := logging.FromContext(r.Context(), logger)
					log.Error().Err(err).Msg("dependency ping failed")
					httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "upstream error")
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"pong":true}`))
		})

		if h.Catalog != nil {
			r.Route("/flags", h.Catalog.Routes)
		}
		if h.Practice != nil {
			r.Route("/practice", func(r chi.Router) {
				r.Use(auth.Authenticate(tokens, logger), auth.RequireAuth)
				h.Practice.Routes(r)
			})
		}
	})

	if h.PracticeWS != nil {
		r.Route("/ws/practice/sessions", func(r chi.Router) {
			r.Use(auth.Authenticate(tokens, logger), auth.RequireAuth)
			h.PracticeWS.Routes(r)
		})
	}

	return r
}

// NewHTTPServer wraps handler with the configured listen address.
func NewHTTPServer(cfg *config.App, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requestLogger stores a request-scoped logger in the context and logs each
// completed request.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := base.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logging.IntoContext(r.Context(), logger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := logger.Info()
			if status >= http.StatusInternalServerError {
				evt = logger.Warn()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("http request")
		})
	}
}
