package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/mindmaps/internal/authservice"
	"github.com/starford/mindmaps/internal/mapservice"
	"github.com/starford/mindmaps/internal/sse"
)

// NewAuthRouter creates the unauthenticated account routes, mounted at /auth.
func NewAuthRouter(auth *authservice.Service) chi.Router {
	h := NewAuthHandler(auth)

	r := chi.NewRouter()
	r.Post("/signup", h.Signup)
	r.Post("/token", h.Login)
	r.Get("/check-email/{email}", h.CheckEmail)
	r.Get("/security-question/{email}", h.SecurityQuestion)
	r.Post("/reset-password", h.ResetPassword)
	return r
}

// NewRouter creates the mind-map routes, mounted at /api. Every route requires
// a bearer token. A nil events broker leaves out /events.
func NewRouter(maps *mapservice.Service, auth *authservice.Service, events *sse.Broker) chi.Router {
	h := NewHandler(maps)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))

	r.Get("/maps", h.ListMaps)
	r.Post("/maps", h.CreateMap)
	r.Get("/maps/search", h.Search)
	r.Get("/maps/{id}", h.GetMap)
	r.Put("/maps/{id}", h.UpdateMap)
	r.Delete("/maps/{id}", h.DeleteMap)
	r.Post("/maps/{id}/copy", h.CopyMap)
	r.Get("/maps/{id}/outline", h.Outline)

	if events != nil {
		r.Get("/events", NewEventsHandler(events).Stream)
	}

	return r
}
