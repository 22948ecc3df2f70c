// Package app wires configuration, Redis and the services into one
// container.
package app

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"teamhealth/internal/cache"
	"teamhealth/internal/config"
	"teamhealth/internal/service"
	"teamhealth/internal/transport/rest"
	"teamhealth/internal/transport/ws"
)

type App struct {
	Config       *config.Config
	Backend      *service.HealthCheckClient
	SessionCache cache.SessionCache
	SubmitGate   cache.SubmitGate
	Auth         *service.AuthService
	Checks       *service.HealthCheckService
	Sessions     *service.SessionService
	Hub          *ws.Hub
}

// New builds the services on top of an open Redis client
func New(cfg *config.Config, rdb *redis.Client) *App {
	a := &App{Config: cfg}

	a.Backend = service.NewHealthCheckClient(cfg.GraphQLEndpoint, cfg.BackendTimeout, cfg.BackendMaxRetries)
	a.SessionCache = cache.NewSessionCache(rdb, cfg.SessionTTL)
	// a held gate outlives one backend call and the results read after it
	a.SubmitGate = cache.NewSubmitGate(rdb, 2*cfg.BackendTimeout+5*time.Second)

	a.Auth = service.NewAuthService(cfg.JWTSecret, cfg.SessionTTL)
	a.Checks = service.NewHealthCheckService(a.Backend, cfg.PublicURL)
	a.Sessions = service.NewSessionService(a.Checks, a.Backend, a.SessionCache, a.SubmitGate, a.Auth)

	a.Hub = ws.NewHub()
	a.Sessions.SetBroadcaster(a.Hub)
	return a
}

// Router returns the HTTP handler serving pages and the API
func (a *App) Router() http.Handler {
	return rest.NewRouter(&rest.Container{
		AuthService:        a.Auth,
		HealthCheckService: a.Checks,
		SessionService:     a.Sessions,
		WSHub:              a.Hub,
		AllowedOrigins:     a.Config.CORSAllowedOrigins,
	})
}

// Close stops the websocket hub
func (a *App) Close() {
	a.Hub.Close()
}
