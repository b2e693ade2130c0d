package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ReadingFormatPhysical = "physical"
	ReadingFormatDigital  = "digital"
	ReadingFormatAudio    = "audio"
)

// Reading is one bounded period of a book being actively read. A book can't
// have two readings starting on the same day.
type Reading struct {
	bun.BaseModel `bun:"table:readings,alias:r"`

	ID        int        `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	BookID    int        `bun:",nullzero" json:"book_id"`
	Book      *Book      `bun:"rel:belongs-to" json:"-"`
	StartDate time.Time  `bun:",nullzero" json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Finished  bool       `json:"finished"`
	Rating    *int       `json:"rating"`
	Review    *string    `json:"review"`
	Format    *string    `json:"format"`
}
