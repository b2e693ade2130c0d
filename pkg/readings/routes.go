package readings

import (
	"github.com/bookstacks/bookstacks/pkg/books"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers reading routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		readingService: NewService(db),
		bookService:    books.NewService(db),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.POST("/:id", h.update)
	g.DELETE("/:id", h.delete)
}
