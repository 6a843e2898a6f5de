package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/casecoach/backend/app"
	"github.com/casecoach/backend/handlers"
	"github.com/casecoach/backend/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	searchHandler := handlers.NewSearchHandler(deps.Retrieval, deps.Audit, deps.Config.Pipeline.SearchTimeout, deps.Logger)
	coachHandler := handlers.NewCoachHandler(deps.Retrieval, deps.Store, deps.Coach, deps.Audit, deps.Config.Pipeline.CoachTimeout, deps.Logger)
	caseHandler := handlers.NewCaseHandler(deps.Store, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Audit.Metrics(), deps.Logger)
	adminHandler := handlers.NewAdminHandler(deps.Store, deps.Provider, deps.Config.Data.CasesPath, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", healthHandler.HandleStatus)
		r.Post("/search", searchHandler.HandleSearch)
		r.Post("/coach", coachHandler.HandleCoach)
		r.Get("/cases/{id}", caseHandler.HandleGetCase)

		// Index administration (require admin role)
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAdmin)
			r.Post("/reindex", adminHandler.HandleReindex)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
