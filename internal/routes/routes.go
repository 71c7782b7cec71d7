package routes

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"

	"github.com/evn/tracker_backendl/config"
	"github.com/evn/tracker_backendl/internal/handlers"
	"github.com/evn/tracker_backendl/internal/middleware"
	"github.com/evn/tracker_backendl/internal/pkg/response"
	"github.com/evn/tracker_backendl/internal/repositories"
	"github.com/evn/tracker_backendl/internal/services/access"
	authService "github.com/evn/tracker_backendl/internal/services/auth"
	"github.com/evn/tracker_backendl/internal/services/live"
	locationService "github.com/evn/tracker_backendl/internal/services/location"
	"github.com/evn/tracker_backendl/internal/services/registry"
)

// Setup wires repositories, services and handlers into the two API
// surfaces: the device API under /api/jwt and the dashboard API under
// /api/site.
func Setup(cfg *config.Config, database *sql.DB, redisClient *redis.Client) *chi.Mux {
	jwtAuth := jwtauth.New("HS256", []byte(cfg.JwtSecret), nil)
	jwtService := authService.NewJWTService(cfg.JwtSecret)
	policy := access.NewPolicy(cfg.DeniedOrgs, cfg.DeniedDevices, cfg.DDoSOrgs)

	orgRepo := repositories.NewOrgRepository(database)
	deviceRepo := repositories.NewDeviceRepository(database)
	locationRepo := repositories.NewLocationRepository(database)

	reg := registry.New(orgRepo, deviceRepo, locationRepo, policy)
	hub := live.NewHub()
	locationSvc := locationService.NewService(locationRepo, deviceRepo, reg, policy, redisClient, hub)

	authHandler := handlers.NewAuthHandler(cfg, reg, orgRepo, jwtService)
	deviceHandler := handlers.NewDeviceHandler(cfg, reg, orgRepo)
	locationHandler := handlers.NewLocationHandler(cfg, locationSvc, reg, policy)
	exportHandler := handlers.NewExportHandler(locationSvc)
	wsHandler := handlers.NewWSHandler(hub)

	router := chi.NewRouter()
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Device API: JWT issued at registration.
	router.Route("/api/jwt", func(r chi.Router) {
		r.Post("/register", authHandler.RegisterHandler)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtAuth))
			r.Use(jwtauth.Authenticator(jwtAuth))
			r.Use(middleware.AddDeviceClaims())

			r.HandleFunc("/refresh_token", authHandler.RefreshTokenHandler)
			r.Get("/company_tokens", deviceHandler.ListCompanyTokensHandler)
			r.Get("/devices", deviceHandler.DeviceAPIListHandler)
			r.Delete("/devices/{id}", deviceHandler.DeleteDeviceHandler)
			r.Get("/stats", locationHandler.StatsHandler)
			r.Get("/locations/latest", locationHandler.DeviceAPILatestHandler)
			r.Get("/locations", locationHandler.DeviceAPIGetHandler)
			r.Post("/locations", locationHandler.DeviceAPIPostHandler)
			r.Post("/locations/{company_token}", locationHandler.DeviceAPIPostHandler)
			r.Delete("/locations", locationHandler.DeviceAPIDeleteHandler)
		})
	})

	// Site API: the operator/org dashboard.
	router.Route("/api/site", func(r chi.Router) {
		r.Post("/auth", authHandler.SiteAuthHandler)
		r.Post("/jwt", authHandler.SiteJWTHandler)

		// Ingestion stays open: devices posting with a bare org token.
		r.Post("/locations", locationHandler.SitePostHandler)
		r.Post("/locations/{company_token}", locationHandler.SitePostHandler)

		r.Get("/ws", wsHandler.ServeWS)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtAuth))
			r.Use(jwtauth.Authenticator(jwtAuth))
			r.Use(middleware.AddOrgClaims())

			r.Get("/company_tokens", deviceHandler.ListCompanyTokensHandler)
			r.Get("/devices", deviceHandler.SiteListHandler)
			r.Delete("/devices/{id}", deviceHandler.DeleteDeviceHandler)
			r.Get("/stats", locationHandler.StatsHandler)
			r.Get("/locations/latest", locationHandler.SiteLatestHandler)
			r.Get("/locations/export", exportHandler.ExportLocationsHandler)
			r.Get("/locations", locationHandler.SiteGetHandler)
			r.Delete("/locations", locationHandler.SiteDeleteHandler)
		})
	})

	return router
}
