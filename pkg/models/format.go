package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Format is a flat taxonomy node (physical, ebook, audiobook, ...). A book
// can carry many formats.
type Format struct {
	bun.BaseModel `bun:"table:formats,alias:fm"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	Slug      string    `bun:",nullzero" json:"slug"`
}

type BookFormat struct {
	bun.BaseModel `bun:"table:book_formats,alias:bf"`

	BookID   int     `bun:",pk" json:"book_id"`
	Book     *Book   `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	FormatID int     `bun:",pk" json:"format_id"`
	Format   *Format `bun:"rel:belongs-to,join:format_id=id" json:"format,omitempty"`
}
