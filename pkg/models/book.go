package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	StatusWishlist = "wishlist"
	StatusBacklog  = "backlog"
	StatusToRead   = "to-read"
	StatusReading  = "reading"
	StatusFinished = "finished"
	StatusDNF      = "dnf"
)

// Statuses lists every book status in canonical lifecycle order.
var Statuses = []string{
	StatusWishlist,
	StatusBacklog,
	StatusToRead,
	StatusReading,
	StatusFinished,
	StatusDNF,
}

var statusDisplayNames = map[string]string{
	StatusWishlist: "Wishlist",
	StatusBacklog:  "Backlog",
	StatusToRead:   "To Read",
	StatusReading:  "Reading",
	StatusFinished: "Finished",
	StatusDNF:      "Did Not Finish",
}

// ValidStatus reports whether s is a recognized book status.
func ValidStatus(s string) bool {
	_, ok := statusDisplayNames[s]
	return ok
}

// StatusDisplayName returns the human-readable name for a status, or the
// status itself if it isn't recognized.
func StatusDisplayName(s string) string {
	if name, ok := statusDisplayNames[s]; ok {
		return name
	}
	return s
}

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        int       `bun:",nullzero" json:"user_id"`
	User          *User     `bun:"rel:belongs-to" json:"-"`
	Title         string    `bun:",nullzero" json:"title"`
	Status        string    `bun:",nullzero" json:"status"`
	Archived      bool      `json:"archived"`
	OnHand        bool      `json:"on_hand"`
	Imported      bool      `json:"imported"`
	PublishedYear *int      `json:"published_year"`
	Pages         *int      `json:"pages"`
	OLID          *string   `bun:"olid" json:"olid"`
	TypeID        *int      `json:"type_id"`
	Type          *BookType `bun:"rel:belongs-to,join:type_id=id" json:"type,omitempty"`

	Authors   []*Author   `bun:"m2m:book_authors,join:Book=Author" json:"authors,omitempty"`
	Genres    []*Genre    `bun:"m2m:book_genres,join:Book=Genre" json:"genres,omitempty"`
	Formats   []*Format   `bun:"m2m:book_formats,join:Book=Format" json:"formats,omitempty"`
	Locations []*Location `bun:"m2m:book_locations,join:Book=Location" json:"locations,omitempty"`

	Readings      []*Reading      `bun:"rel:has-many" json:"readings,omitempty"`
	StatusChanges []*StatusChange `bun:"rel:has-many" json:"status_changes,omitempty"`
	Notes         []*Note         `bun:"rel:has-many" json:"notes,omitempty"`
	Covers        []*Cover        `bun:"rel:has-many" json:"covers,omitempty"`

	// Derived fields populated by PopulateDerived after relations are loaded.
	OriginalStatus string   `bun:"-" json:"original_status,omitempty"`
	LatestReading  *Reading `bun:"-" json:"latest_reading,omitempty"`
}

// PopulateDerived fills OriginalStatus and LatestReading from the loaded
// Readings and StatusChanges relations. OriginalStatus is the old status of
// the earliest status change, or the current status when the book has no
// history. LatestReading is the reading with the most recent start date.
func (b *Book) PopulateDerived() {
	b.OriginalStatus = b.Status
	var earliest *StatusChange
	for _, sc := range b.StatusChanges {
		if earliest == nil || sc.CreatedAt.Before(earliest.CreatedAt) {
			earliest = sc
		}
	}
	if earliest != nil {
		b.OriginalStatus = earliest.OldStatus
	}

	for _, r := range b.Readings {
		if b.LatestReading == nil || r.StartDate.After(b.LatestReading.StartDate) {
			b.LatestReading = r
		}
	}
}
