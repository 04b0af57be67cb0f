// internal/app/features/rooms/routes.go
package rooms

import (
	"net/http"

	"github.com/dalemusser/roomhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	throttle := func(next http.Handler) http.Handler { return next }
	if h.SendLimiter != nil {
		throttle = h.SendLimiter.Middleware(callerKey)
	}

	// Everything under /rooms requires a signed-in caller
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// ROOMS
		pr.Get("/", h.ServeRooms)
		pr.Post("/", h.HandleCreateRoom)
		pr.Get("/mine", h.ServeMyRooms)
		pr.Get("/{id}", h.ServeRoom)
		pr.Patch("/{id}", h.HandleEditRoom)
		pr.Post("/{id}/report", h.HandleReport)

		// MEMBERSHIP
		pr.Post("/{id}/join", h.HandleJoin)
		pr.Post("/{id}/leave", h.HandleLeave)
		pr.Post("/{id}/members", h.HandleAddMember)
		pr.Post("/{id}/kick", h.HandleKick)

		// MESSAGES
		pr.Get("/{id}/messages", h.ServeMessages)
		pr.With(throttle).Post("/{id}/messages", h.HandleSendMessage)
		pr.Post("/{id}/read", h.HandleMarkRead)
	})
	return r
}
