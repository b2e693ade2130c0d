package auth

import (
	"github.com/bookstacks/bookstacks/pkg/config"
	"github.com/bookstacks/bookstacks/pkg/mailer"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all auth routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config) *Service {
	authService := NewService(db, cfg.JWTSecret)

	h := &handler{
		authService: authService,
		mail:        mailer.New(cfg.MailAPIKey, cfg.MailFrom),
		adminEmail:  cfg.AdminEmail,
	}

	auth := e.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/logout", h.logout)
	auth.GET("/me", h.me)

	return authService
}
