package formats

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers format routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		formatService: NewService(db),
	}

	g.GET("", h.list)
	g.GET("/counts", h.counts)
	g.POST("", h.create)
	g.POST("/:id", h.update)
	g.DELETE("/:id", h.delete)
}
