package models

import (
	"time"

	"github.com/uptrace/bun"
)

// StatusChange is an append-only audit record of one status transition.
// Rows are never updated or deleted directly; they go away only when their
// book is deleted.
type StatusChange struct {
	bun.BaseModel `bun:"table:status_changes,alias:sc"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	BookID    int       `bun:",nullzero" json:"book_id"`
	Book      *Book     `bun:"rel:belongs-to" json:"-"`
	OldStatus string    `bun:",nullzero" json:"old_status"`
	NewStatus string    `bun:",nullzero" json:"new_status"`
}
