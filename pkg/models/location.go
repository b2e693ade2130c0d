package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Location is a flat taxonomy node for where a physical book lives.
type Location struct {
	bun.BaseModel `bun:"table:locations,alias:lo"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	Slug      string    `bun:",nullzero" json:"slug"`
}

type BookLocation struct {
	bun.BaseModel `bun:"table:book_locations,alias:bl"`

	BookID     int       `bun:",pk" json:"book_id"`
	Book       *Book     `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	LocationID int       `bun:",pk" json:"location_id"`
	Location   *Location `bun:"rel:belongs-to,join:location_id=id" json:"location,omitempty"`
}
