package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Cover struct {
	bun.BaseModel `bun:"table:covers,alias:cv"`

	ID          int       `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	BookID      int       `bun:",nullzero" json:"book_id"`
	Book        *Book     `bun:"rel:belongs-to" json:"-"`
	Filename    string    `bun:",nullzero" json:"filename"`
	MimeType    string    `bun:",nullzero" json:"mime_type"`
	ImageWidth  int       `json:"image_width"`
	ImageHeight int       `json:"image_height"`
	SourceURL   *string   `json:"source_url"`
}
