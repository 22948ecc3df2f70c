package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"

	_ "teamhealth/docs"
	"teamhealth/internal/service"
	"teamhealth/internal/transport/rest/handler"
	"teamhealth/internal/transport/rest/middleware"
	"teamhealth/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService        *service.AuthService
	HealthCheckService *service.HealthCheckService
	SessionService     *service.SessionService
	WSHub              *ws.Hub
	// AllowedOrigins lists CORS origins; "*" allows any
	AllowedOrigins []string
}

// NewRouter creates the router with the pages and the JSON API
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	pages := handler.NewPageHandler(c.HealthCheckService, c.SessionService, c.AuthService)
	checkHandler := handler.NewHealthCheckHandler(c.HealthCheckService, c.SessionService)
	sessionHandler := handler.NewSessionHandler(c.SessionService)
	wsHandler := ws.NewHandler(c.WSHub, c.HealthCheckService, originAllowed(c.AllowedOrigins))

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(middleware.Logging)
	r.Use(corsMiddleware(c.AllowedOrigins))

	// Pages
	r.HandleFunc("/", pages.Home).Methods("GET")
	r.HandleFunc("/", pages.CreateCheck).Methods("POST")
	r.HandleFunc("/check/{id}", pages.Check).Methods("GET")
	r.HandleFunc("/check/{id}/begin", pages.Begin).Methods("POST")
	r.HandleFunc("/check/{id}/rate", pages.Rate).Methods("POST")
	r.HandleFunc("/check/{id}/restart", pages.Restart).Methods("POST")
	r.HandleFunc("/check/{id}/submit", pages.Submit).Methods("POST")
	r.HandleFunc("/check/{id}/again", pages.Again).Methods("POST")
	r.HandleFunc("/results/{id}", pages.Results).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/topics", checkHandler.Topics).Methods("GET", "OPTIONS")
	v1.HandleFunc("/checks", checkHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/checks/{id}", checkHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/checks/{id}/results", checkHandler.Results).Methods("GET", "OPTIONS")
	v1.HandleFunc("/checks/{id}/sessions", checkHandler.StartSession).Methods("POST", "OPTIONS")

	// WebSocket routes (public)
	v1.HandleFunc("/ws/checks/{id}/results", wsHandler.ResultsWS).Methods("GET")

	// Participant routes (require participant token)
	sessionRoutes := v1.PathPrefix("/session").Subrouter()
	sessionRoutes.Use(authMW.RequireParticipant)

	sessionRoutes.HandleFunc("", sessionHandler.Get).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/begin", sessionHandler.Begin).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/select", sessionHandler.Select).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/confirm", sessionHandler.Confirm).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/restart", sessionHandler.Restart).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/submit", sessionHandler.Submit).Methods("POST", "OPTIONS")

	return r
}

func originAllowed(origins []string) func(string) bool {
	return func(origin string) bool {
		if len(origins) == 0 {
			return true
		}
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowed := originAllowed(origins)
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed(origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
