package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bookstacks/bookstacks/pkg/auth"
	"github.com/bookstacks/bookstacks/pkg/authors"
	"github.com/bookstacks/bookstacks/pkg/binder"
	"github.com/bookstacks/bookstacks/pkg/books"
	"github.com/bookstacks/bookstacks/pkg/booktypes"
	"github.com/bookstacks/bookstacks/pkg/config"
	"github.com/bookstacks/bookstacks/pkg/covers"
	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/formats"
	"github.com/bookstacks/bookstacks/pkg/genres"
	"github.com/bookstacks/bookstacks/pkg/imports"
	"github.com/bookstacks/bookstacks/pkg/jobs"
	"github.com/bookstacks/bookstacks/pkg/locations"
	"github.com/bookstacks/bookstacks/pkg/notes"
	"github.com/bookstacks/bookstacks/pkg/readings"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authService := auth.RegisterRoutes(e, db, cfg)
	authMiddleware := auth.NewMiddleware(authService)

	registerProtectedRoutes(e, db, cfg, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// registerProtectedRoutes registers all API routes that require a logged-in
// user.
func registerProtectedRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, authMiddleware *auth.Middleware) {
	group := func(prefix string) *echo.Group {
		g := e.Group(prefix)
		g.Use(authMiddleware.Authenticate)
		return g
	}

	books.RegisterRoutesWithGroup(group("/books"), db)
	readings.RegisterRoutesWithGroup(group("/readings"), db)
	notes.RegisterRoutesWithGroup(group("/notes"), db)
	authors.RegisterRoutesWithGroup(group("/authors"), db)
	genres.RegisterRoutesWithGroup(group("/genres"), db)
	booktypes.RegisterRoutesWithGroup(group("/types"), db)
	formats.RegisterRoutesWithGroup(group("/formats"), db)
	locations.RegisterRoutesWithGroup(group("/locations"), db)
	covers.RegisterRoutesWithGroup(group("/covers"), db, cfg)
	imports.RegisterRoutesWithGroup(group("/imports"), db, cfg)
	jobs.RegisterRoutesWithGroup(group("/jobs"), db)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
