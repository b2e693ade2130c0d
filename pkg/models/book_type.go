package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BookType is a hierarchical taxonomy node like Genre, but single-valued:
// a book has at most one type (e.g. Non-fiction → Memoir).
type BookType struct {
	bun.BaseModel `bun:"table:book_types,alias:ty"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	Slug      string    `bun:",nullzero" json:"slug"`
	ParentID  *int      `json:"parent_id"`
	Parent    *BookType `bun:"rel:belongs-to,join:parent_id=id" json:"parent,omitempty"`
}
