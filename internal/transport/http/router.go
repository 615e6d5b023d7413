package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"chaintable/internal/config"
	"chaintable/internal/coordinator"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(coord *coordinator.Coordinator, cfg config.ServerConfig, limiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", HealthHandler())

	r.With(APILogMiddleware()).
		With(limiter.Limit(cfg.AuthRateLimit, cfg.RateWindow)).
		Post("/auth", AuthHandler(coord))

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Group(func(r chi.Router) {
			r.Use(TokenAuthMiddleware(coord))
			r.Use(limiter.Limit(cfg.ActionRateLimit, cfg.RateWindow))

			r.Post("/sessions", SessionsCreateHandler(coord))
			r.Get("/sessions/{session_id}", SessionStateHandler(coord))
			r.Post("/sessions/{session_id}/actions", ActionsHandler(coord))
			r.Delete("/sessions/{session_id}", SessionsDeleteHandler(coord))
			r.Get("/settlements/{session_id}", SettlementHandler(coord))
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/settlements/pending", PendingSettlementsHandler(coord))
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
