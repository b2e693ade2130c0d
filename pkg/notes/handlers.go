package notes

import (
	"net/http"
	"strconv"

	"github.com/bookstacks/bookstacks/pkg/books"
	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	noteService *Service
	bookService *books.Service
}

type ListNotesQuery struct {
	Limit  int  `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=100"`
	Offset int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	BookID *int `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
}

type CreateNotePayload struct {
	BookID int    `json:"book_id" validate:"required,min=1"`
	Text   string `json:"text" validate:"required,max=10000"`
	Page   *int   `json:"page,omitempty" validate:"omitempty,min=0"`
}

type UpdateNotePayload struct {
	Text *string `json:"text,omitempty" validate:"omitempty,max=10000"`
	Page *int    `json:"page,omitempty" validate:"omitempty,min=0"`
}

func currentUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return nil, errcodes.Unauthorized("You must be logged in.")
	}
	return user, nil
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := ListNotesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	notes, total, err := h.noteService.ListNotesWithTotal(ctx, ListNotesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		BookID: params.BookID,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Notes []*models.Note `json:"notes"`
		Total int            `json:"total"`
	}{notes, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := CreateNotePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// The book must belong to the current user.
	_, err = h.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{
		ID:     &params.BookID,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	note := &models.Note{
		BookID: params.BookID,
		Text:   params.Text,
		Page:   params.Page,
	}
	if err := h.noteService.CreateNote(ctx, note); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, note))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Note")
	}

	// Bind params.
	params := UpdateNotePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	note, err := h.noteService.RetrieveNote(ctx, RetrieveNoteOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateNoteOptions{Columns: []string{}}

	if params.Text != nil && *params.Text != note.Text {
		note.Text = *params.Text
		opts.Columns = append(opts.Columns, "text")
	}
	if params.Page != nil {
		note.Page = params.Page
		opts.Columns = append(opts.Columns, "page")
	}

	if err := h.noteService.UpdateNote(ctx, note, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, note))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Note")
	}

	note, err := h.noteService.RetrieveNote(ctx, RetrieveNoteOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.noteService.DeleteNote(ctx, note); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
