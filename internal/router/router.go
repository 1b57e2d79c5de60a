package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelguerrae/TeamSync/internal/config"
	"github.com/rafaelguerrae/TeamSync/internal/handler"
	"github.com/rafaelguerrae/TeamSync/internal/middleware"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Team   *handler.TeamHandler
	Audit  *handler.AuditHandler
	Docs   *handler.DocsHandler
	Health *handler.HealthHandler
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	authMiddleware *middleware.AuthMiddleware,
	rateLimit *middleware.RateLimitMiddleware,
	h Handlers,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimit.Handler)

	r.Get("/health", h.Health.Health)
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/signup", h.Auth.SignUp)
		api.Post("/signin", h.Auth.SignIn)
		api.Post("/refresh-token", h.Auth.Refresh)
		api.Post("/signout", h.Auth.SignOut)

		api.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)

			protected.Route("/users", func(users chi.Router) {
				users.Get("/", h.User.List)
				users.Get("/me", h.User.Me)
				users.Get("/me/activity", h.Audit.Activity)
				users.Get("/search", h.User.Search)
				users.Get("/{id}", h.User.Get)
				users.Patch("/{id}", h.User.Update)
				users.Delete("/{id}", h.User.Delete)
				users.Get("/{id}/teams", h.User.Teams)
			})

			protected.Route("/teams", func(teams chi.Router) {
				teams.Post("/", h.Team.Create)
				teams.Get("/", h.Team.List)
				teams.Get("/alias/{alias}", h.Team.GetByAlias)
				teams.Get("/alias/{alias}/members", h.Team.MembersByAlias)
				teams.Get("/{id}", h.Team.Get)
				teams.Patch("/{id}", h.Team.Update)
				teams.Delete("/{id}", h.Team.Delete)
				teams.Get("/{id}/members", h.Team.Members)
				teams.Post("/{id}/members", h.Team.AddMember)
				teams.Patch("/{id}/members", h.Team.UpdateMember)
				teams.Delete("/{id}/members/{userId}", h.Team.RemoveMember)
			})
		})
	})

	return r
}
