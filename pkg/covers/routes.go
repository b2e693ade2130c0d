package covers

import (
	"github.com/bookstacks/bookstacks/pkg/books"
	"github.com/bookstacks/bookstacks/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers cover routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	h := &handler{
		coverService: NewService(db, cfg.CoversDir, cfg.CoverMaxWidth),
		bookService:  books.NewService(db),
		client:       NewClient(cfg.OpenLibraryURL),
	}

	g.GET("/search", h.search)
	g.POST("", h.upload)
	g.POST("/fetch", h.fetch)
	g.GET("/:id/image", h.image)
	g.DELETE("/:id", h.delete)
}
