package server

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/taskpilot/taskpilot-go/internal/ai"
	"github.com/taskpilot/taskpilot-go/internal/api"
	"github.com/taskpilot/taskpilot-go/internal/config"
	"github.com/taskpilot/taskpilot-go/internal/db"
	"github.com/taskpilot/taskpilot-go/internal/schedule"
	"github.com/taskpilot/taskpilot-go/internal/settings"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// pageRoutes maps page paths to the HTML files served from the pages dir.
var pageRoutes = map[string]string{
	"/":         "index.html",
	"/focus":    "focus.html",
	"/today":    "today.html",
	"/tasks":    "tasks.html",
	"/settings": "settings.html",
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config) (http.Handler, func(context.Context) error, error) {
	log.Printf("Using database: %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware(cfg.IsDevelopment()))

	registerPageRoutes(router, cfg.PagesDir)
	registerHealthRoute(router)

	scheduleRepo := schedule.NewRepository(dbPair)
	schedule.RegisterRoutes(router, scheduleRepo, nil)

	settingsRepo := settings.NewRepository(dbPair, nil)

	modelRegistry := ai.NewRegistry(settingsRepo, cfg.DefaultModel, nil)
	aiClient := ai.NewClient(cfg.AnthropicAPIKey, time.Duration(cfg.AnthropicTimeoutMs)*time.Millisecond, nil)
	ai.RegisterRoutes(router, aiClient, modelRegistry)

	router.NotFound(api.WriteNotFound)

	shutdown := func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		return dbPair.Close()
	}

	return router, shutdown, nil
}

// registerPageRoutes serves the static HTML pages and their assets. Page
// rendering is a pass-through: the backend only hands files over.
func registerPageRoutes(router chi.Router, pagesDir string) {
	for route, file := range pageRoutes {
		path := filepath.Join(pagesDir, file)
		router.Get(route, func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, path)
		})
	}
	router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(filepath.Join(pagesDir, "assets")))))
}

func registerHealthRoute(router chi.Router) {
	router.Method(http.MethodGet, "/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   "taskpilot",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}))
}
