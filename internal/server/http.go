package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/config"
	"github.com/gokatarajesh/ladder-quiz/internal/game"
	"github.com/gokatarajesh/ladder-quiz/internal/logging"
	httperrors "github.com/gokatarajesh/ladder-quiz/pkg/http/errors"
)

// Check is a named dependency probe used by /v1/ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Routes are the feature handlers mounted by the router. Nil handlers are skipped.
type Routes struct {
	GameWS         http.HandlerFunc
	Leaderboard    http.HandlerFunc
	CreateQuestion http.HandlerFunc
	ListQuestions  http.HandlerFunc
}

// NewWSUpgrader accepts same-host requests and those from allowedOrigins.
// A "*" entry allows every origin.
func NewWSUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSuffix(strings.TrimSpace(o), "/")] = true
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[origin] {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// NewHTTPServer wires the router into an http.Server for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, gatherer prometheus.Gatherer, checks []Check, routes Routes) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.CORS, logger, gatherer, checks, routes),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the chi router with base routes (health, metrics, ping,
// profiles) and the feature routes.
func NewRouter(corsCfg config.CORS, logger zerolog.Logger, gatherer prometheus.Gatherer, checks []Check, routes Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   corsCfg.AllowedMethods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), checks); err != nil {
			log := logging.FromContext(r.Context())
			log.Error().Err(err).Msg("dependency ping failed")
			httperrors.Respond(w, httperrors.ErrCodeServiceUnavailable, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	r.Get("/v1/profiles", handleProfiles)

	if routes.ListQuestions != nil {
		r.Get("/v1/questions", routes.ListQuestions)
	}
	if routes.CreateQuestion != nil {
		r.Post("/v1/questions", routes.CreateQuestion)
	}
	if routes.Leaderboard != nil {
		r.Get("/v1/leaderboard", routes.Leaderboard)
	}
	if routes.GameWS != nil {
		r.Get("/ws/game", routes.GameWS)
	}

	return r
}

type pingError struct {
	name string
	err  error
}

func (e *pingError) Error() string { return e.name + ": " + e.err.Error() }
func (e *pingError) Unwrap() error { return e.err }

func pingDependencies(ctx context.Context, checks []Check) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	for _, c := range checks {
		if err := c.Ping(ctx); err != nil {
			return &pingError{name: c.Name, err: err}
		}
	}
	return nil
}

func handleProfiles(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"profiles": game.Profiles(),
	})
}

// requestLogger stores a request-scoped logger in the context and logs each request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := logger.With().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))

			reqLogger.Debug().
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
