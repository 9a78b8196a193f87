package routes

import (
	"net/http"

	"github.com/AnshRaj112/safeharbor-backend/internal/handlers"
	"github.com/AnshRaj112/safeharbor-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(r chi.Router, h *handlers.Handler) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Companion chat: any method reaches the handler so it can answer 405 itself.
	r.HandleFunc("/api/chat", h.Chat)

	// Identity
	r.Post("/api/auth/signup", h.Signup)
	r.Post("/api/auth/signin", h.Signin)
	r.Post("/api/auth/signout", h.Signout)

	// Public library content
	r.Get("/api/resources", h.ListResources)
	r.Get("/api/checkins/questions", h.CheckInQuestions)

	// Realtime feed authenticates itself (token may be in the query string)
	r.Get("/ws/chat", h.ChatWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.Tokens))
		if h.UserLimiter != nil {
			r.Use(middleware.LimitByUser(h.UserLimiter))
		}

		r.Get("/api/auth/me", h.Me)

		r.Get("/api/chat/messages", h.ListMessages)
		r.Post("/api/chat/sessions", h.CreateSession)
		r.Get("/api/chat/sessions", h.ListSessions)

		r.Post("/api/journals", h.CreateJournal)
		r.Get("/api/journals", h.ListJournals)

		r.Post("/api/goals", h.CreateGoal)
		r.Get("/api/goals", h.ListGoals)
		r.Put("/api/goals/{id}", h.UpdateGoal)
		r.Delete("/api/goals/{id}", h.DeleteGoal)

		r.Post("/api/checkins", h.SubmitCheckIn)
		r.Get("/api/checkins", h.ListCheckIns)

		r.Post("/api/upload", h.UploadImage)
	})
}
