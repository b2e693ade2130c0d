package covers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/bookstacks/bookstacks/pkg/books"
	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	coverService *Service
	bookService  *books.Service
	client       *Client
}

type SearchQuery struct {
	Title  string `query:"title" json:"title" validate:"required,max=300" mod:"trim"`
	Author string `query:"author" json:"author,omitempty" validate:"omitempty,max=200" mod:"trim"`
}

type FetchCoverPayload struct {
	BookID int    `json:"book_id" validate:"required,min=1"`
	URL    string `json:"url" validate:"required,url"`
}

func currentUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return nil, errcodes.Unauthorized("You must be logged in.")
	}
	return user, nil
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := SearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	result, err := h.client.Search(ctx, params.Title, params.Author)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}

// fetch downloads a cover from an external URL and attaches it to a book.
func (h *handler) fetch(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := FetchCoverPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{
		ID:     &params.BookID,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	cover, err := h.coverService.SaveCoverFromURL(ctx, book, params.URL)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, cover))
}

// upload attaches an uploaded image file to a book.
func (h *handler) upload(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	bookID, err := strconv.Atoi(c.FormValue("book_id"))
	if err != nil {
		return errcodes.ValidationError("book_id is required")
	}

	book, err := h.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{
		ID:     &bookID,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errcodes.ValidationError("A cover image file is required.")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, 20<<20))
	if err != nil {
		return errors.WithStack(err)
	}

	cover, err := h.coverService.SaveCover(ctx, book, data, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, cover))
}

// image serves the stored cover file.
func (h *handler) image(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Cover")
	}

	cover, err := h.coverService.RetrieveCover(ctx, RetrieveCoverOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.File(h.coverService.CoverPath(cover)))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Cover")
	}

	cover, err := h.coverService.RetrieveCover(ctx, RetrieveCoverOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.coverService.DeleteCover(ctx, cover); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
