package apiapp

import (
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authsvc "github.com/olegbrv/storefront/backend/internal/services/auth"
	"github.com/olegbrv/storefront/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService   *authsvc.Service
	TokenCodec    *authsvc.TokenCodec
	UserLoader    UserLoader
	UserLister    handlers.UserLister
	RefreshWindow time.Duration
	Logger        *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	healthHandler := handlers.NewHealthHandler()
	adminHandler := handlers.NewAdminHandler(deps.UserLister)

	sessionMW := SessionMiddleware(deps.TokenCodec, deps.UserLoader, deps.RefreshWindow, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(sessionMW).Get("/me", authHandler.Me)
		r.With(sessionMW, RequireAdmin).Get("/", adminHandler.Users)
	})
}
