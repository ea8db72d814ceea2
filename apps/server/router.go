package main

import (
	"net/http"

	"blackjack-ql/apps/server/internal/auth"
	"blackjack-ql/apps/server/internal/gateway"
	"blackjack-ql/apps/server/internal/ledger"
	"blackjack-ql/apps/server/internal/lobby"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type services struct {
	auth           auth.Service
	ledger         ledger.Service
	lobby          *lobby.Lobby
	gateway        *gateway.Gateway
	allowedOrigins []string
}

func newRouter(s services) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/ws", s.gateway.HandleWebSocket)

	ledger.NewHTTPHandler(s.ledger).RegisterRoutes(r)
	lobby.NewHTTPHandler(s.lobby).RegisterRoutes(r, auth.RequireAdmin(s.auth))
	return r
}
