// Package server implements the HTTP command surface: a REST adapter
// over the uptime orchestrator (internal/orchestrator), a websocket
// live event stream, and a /healthz endpoint. It holds no business
// logic of its own — every handler either dispatches to commandFacade
// or reads host/database diagnostics directly.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/events"
)

// Config carries everything Server needs to build its router.
type Config struct {
	Port         int
	Orchestrator commandFacade
	Bus          *events.Bus
	DB           healthChecker
	DevMode      bool
	Log          zerolog.Logger
}

// Server wraps an http.Server bound to the router built from Config.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// New builds a Server. It does not start listening; call Start for that.
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestIDLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg.DevMode),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	cmd := newCommandHandlers(cfg.Orchestrator, log)

	r.Get("/healthz", healthzHandler(cfg.DB, log))
	r.Get("/ws", newEventsStreamHandler(cfg.Bus, log).ServeHTTP)

	r.Route("/api", func(api chi.Router) {
		api.Get("/sites", cmd.listSites)
		api.Post("/sites", cmd.createSite)
		api.Put("/sites/{siteID}", cmd.updateSite)
		api.Delete("/sites/{siteID}", cmd.deleteSite)
		api.Post("/sites/{siteID}/start", cmd.startSite)
		api.Post("/sites/{siteID}/stop", cmd.stopSite)
		api.Post("/sites/{siteID}/monitors/{monitorID}/check", cmd.checkMonitorNow)
		api.Get("/monitors/{monitorID}/analytics", cmd.monitorAnalytics)

		api.Post("/monitoring/start", cmd.startAllMonitoring)
		api.Post("/monitoring/stop", cmd.stopAllMonitoring)

		api.Get("/settings/history-limit", cmd.getHistoryLimit)
		api.Put("/settings/history-limit", cmd.setHistoryLimit)

		api.Get("/export", cmd.exportData)
		api.Post("/import", cmd.importData)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + itoa(cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		log: log,
	}
}

// Start runs the HTTP server, blocking until it stops. Returns nil on a
// graceful Shutdown, any other error otherwise.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, waiting for in-flight
// requests up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsOrigins allows any origin in DevMode (the desktop app's embedded
// webview varies its origin by platform); otherwise only same-origin
// requests are expected, so the list is left empty and the browser's own
// same-origin policy applies.
func corsOrigins(devMode bool) []string {
	if devMode {
		return []string{"*"}
	}
	return nil
}

// requestIDLogger attaches the chi request id to every log line emitted
// while handling that request, following the correlation-id convention
// internal/events uses for bus emissions (both use github.com/google/uuid).
func requestIDLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			if reqID == "" {
				reqID = uuid.NewString()
			}
			scoped := log.With().Str("request_id", reqID).Logger()
			ctx := scoped.WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
