package books

type ListBooksQuery struct {
	Limit    int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset   int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status   *string `query:"status" json:"status,omitempty" validate:"omitempty,status"`
	Archived *bool   `query:"archived" json:"archived,omitempty"`
	Search   *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100" mod:"trim"`
	Genre    *string `query:"genre" json:"genre,omitempty" validate:"omitempty,max=100"`
	Type     *string `query:"type" json:"type,omitempty" validate:"omitempty,max=100"`
	Format   *string `query:"format" json:"format,omitempty" validate:"omitempty,max=100"`
	Location *string `query:"location" json:"location,omitempty" validate:"omitempty,max=100"`
	AuthorID *int    `query:"author_id" json:"author_id,omitempty" validate:"omitempty,min=1"`
}

type CreateBookPayload struct {
	Title         string   `json:"title" validate:"required,max=300" mod:"trim"`
	Status        string   `json:"status" validate:"required,status"`
	Authors       []string `json:"authors,omitempty" validate:"omitempty,dive,required,max=200"`
	TypeID        *int     `json:"type_id,omitempty" validate:"omitempty,min=1"`
	GenreIDs      []int    `json:"genre_ids,omitempty" validate:"omitempty,dive,min=1"`
	FormatIDs     []int    `json:"format_ids,omitempty" validate:"omitempty,dive,min=1"`
	LocationIDs   []int    `json:"location_ids,omitempty" validate:"omitempty,dive,min=1"`
	OnHand        bool     `json:"on_hand,omitempty"`
	PublishedYear *int     `json:"published_year,omitempty" validate:"omitempty,min=0,max=2100"`
	Pages         *int     `json:"pages,omitempty" validate:"omitempty,min=1"`
	OLID          *string  `json:"olid,omitempty" validate:"omitempty,max=30"`
}

type UpdateBookPayload struct {
	Title         *string  `json:"title,omitempty" validate:"omitempty,max=300" mod:"trim"`
	Status        *string  `json:"status,omitempty" validate:"omitempty,status"`
	Archived      *bool    `json:"archived,omitempty"`
	OnHand        *bool    `json:"on_hand,omitempty"`
	Authors       []string `json:"authors,omitempty" validate:"omitempty,dive,required,max=200"`
	TypeID        *int     `json:"type_id,omitempty" validate:"omitempty,min=1"`
	GenreIDs      []int    `json:"genre_ids,omitempty" validate:"omitempty,dive,min=1"`
	FormatIDs     []int    `json:"format_ids,omitempty" validate:"omitempty,dive,min=1"`
	LocationIDs   []int    `json:"location_ids,omitempty" validate:"omitempty,dive,min=1"`
	PublishedYear *int     `json:"published_year,omitempty" validate:"omitempty,min=0,max=2100"`
	Pages         *int     `json:"pages,omitempty" validate:"omitempty,min=1"`
	OLID          *string  `json:"olid,omitempty" validate:"omitempty,max=30"`
}
