package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    int       `bun:",nullzero" json:"user_id"`
	Name      string    `bun:",nullzero" json:"name"`
	Bio       *string   `json:"bio,omitempty"`
}

type BookAuthor struct {
	bun.BaseModel `bun:"table:book_authors,alias:ba"`

	BookID   int     `bun:",pk" json:"book_id"`
	Book     *Book   `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	AuthorID int     `bun:",pk" json:"author_id"`
	Author   *Author `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
}
