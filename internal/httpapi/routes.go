package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/ws"
)

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", a.Healthz)
	r.Get("/ws", ws.Handler(a.hub, a.log))
	r.Get("/api/rooms/{code}", a.RoomByCode)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", a.Login)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAdmin)
			r.Post("/rooms", a.CreateRoom)
			r.Get("/rooms", a.ListRooms)
			r.Get("/rooms/{id}", a.RoomDetail)
			r.Get("/rooms/{id}/bp-record", a.BPRecord)
			r.Post("/rooms/{id}/bp/start", a.StartBP)
			r.Post("/mappools", a.CreateMapPool)
			r.Get("/mappools", a.ListMapPools)
		})
	})

	return r
}
