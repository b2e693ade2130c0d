package readings

type ListReadingsQuery struct {
	Limit  int  `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=100"`
	Offset int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	BookID *int `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
}

type CreateReadingPayload struct {
	BookID    int     `json:"book_id" validate:"required,min=1"`
	StartDate string  `json:"start_date" validate:"required,date"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,date"`
	Finished  bool    `json:"finished,omitempty"`
	Rating    *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Review    *string `json:"review,omitempty" validate:"omitempty,max=10000"`
	Format    *string `json:"format,omitempty" validate:"omitempty,oneof=physical digital audio"`
}

type UpdateReadingPayload struct {
	StartDate *string `json:"start_date,omitempty" validate:"omitempty,date"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,date"`
	Finished  *bool   `json:"finished,omitempty"`
	Rating    *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Review    *string `json:"review,omitempty" validate:"omitempty,max=10000"`
	Format    *string `json:"format,omitempty" validate:"omitempty,oneof=physical digital audio"`
}
