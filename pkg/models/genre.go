package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Genre is a hierarchical taxonomy node: a genre may have a parent genre,
// forming a two-level hierarchy (e.g. Fiction → Mystery). A book can carry
// many genres.
type Genre struct {
	bun.BaseModel `bun:"table:genres,alias:g"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	Slug      string    `bun:",nullzero" json:"slug"`
	ParentID  *int      `json:"parent_id"`
	Parent    *Genre    `bun:"rel:belongs-to,join:parent_id=id" json:"parent,omitempty"`
}

type BookGenre struct {
	bun.BaseModel `bun:"table:book_genres,alias:bg"`

	BookID  int    `bun:",pk" json:"book_id"`
	Book    *Book  `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	GenreID int    `bun:",pk" json:"genre_id"`
	Genre   *Genre `bun:"rel:belongs-to,join:genre_id=id" json:"genre,omitempty"`
}
