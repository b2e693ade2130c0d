package models

import "github.com/uptrace/bun"

// RegisterJoinModels registers the many-to-many join tables with bun so that
// m2m relations can be queried. Must be called once before any relation
// queries run.
func RegisterJoinModels(db *bun.DB) {
	db.RegisterModel(
		(*BookAuthor)(nil),
		(*BookGenre)(nil),
		(*BookFormat)(nil),
		(*BookLocation)(nil),
	)
}
