package books

import (
	"net/http"
	"strconv"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	bookService *Service
}

func currentUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return nil, errcodes.Unauthorized("You must be logged in.")
	}
	return user, nil
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	archived := false
	if params.Archived != nil {
		archived = *params.Archived
	}

	opts := ListBooksOptions{
		Limit:        &params.Limit,
		Offset:       &params.Offset,
		UserID:       &user.ID,
		Status:       params.Status,
		Archived:     &archived,
		Search:       params.Search,
		GenreSlug:    params.Genre,
		TypeSlug:     params.Type,
		FormatSlug:   params.Format,
		LocationSlug: params.Location,
		AuthorID:     params.AuthorID,
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	statusCounts, err := h.bookService.StatusCounts(ctx, user.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books        []*models.Book `json:"books"`
		Total        int            `json:"total"`
		StatusCounts map[string]int `json:"status_counts"`
	}{books, total, statusCounts}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		UserID:        user.ID,
		Title:         params.Title,
		Status:        params.Status,
		OnHand:        params.OnHand,
		TypeID:        params.TypeID,
		PublishedYear: params.PublishedYear,
		Pages:         params.Pages,
		OLID:          params.OLID,
	}
	for _, name := range params.Authors {
		book.Authors = append(book.Authors, &models.Author{Name: name})
	}
	for _, id := range params.GenreIDs {
		book.Genres = append(book.Genres, &models.Genre{ID: id})
	}
	for _, id := range params.FormatIDs {
		book.Formats = append(book.Formats, &models.Format{ID: id})
	}
	for _, id := range params.LocationIDs {
		book.Locations = append(book.Locations, &models.Location{ID: id})
	}

	if err := h.bookService.CreateBook(ctx, book); err != nil {
		return errors.WithStack(err)
	}

	// Reload with relations.
	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID:     &book.ID,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the book.
	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Status != nil && *params.Status != book.Status {
		book.Status = *params.Status
		opts.Columns = append(opts.Columns, "status")
	}
	if params.Archived != nil && *params.Archived != book.Archived {
		book.Archived = *params.Archived
		opts.Columns = append(opts.Columns, "archived")
	}
	if params.OnHand != nil && *params.OnHand != book.OnHand {
		book.OnHand = *params.OnHand
		opts.Columns = append(opts.Columns, "on_hand")
	}
	if params.TypeID != nil {
		book.TypeID = params.TypeID
		opts.Columns = append(opts.Columns, "type_id")
	}
	if params.PublishedYear != nil {
		book.PublishedYear = params.PublishedYear
		opts.Columns = append(opts.Columns, "published_year")
	}
	if params.Pages != nil {
		book.Pages = params.Pages
		opts.Columns = append(opts.Columns, "pages")
	}
	if params.OLID != nil {
		book.OLID = params.OLID
		opts.Columns = append(opts.Columns, "olid")
	}

	if params.Authors != nil {
		book.Authors = nil
		for _, name := range params.Authors {
			book.Authors = append(book.Authors, &models.Author{Name: name})
		}
		opts.UpdateAuthors = true
	}
	if params.GenreIDs != nil {
		book.Genres = nil
		for _, genreID := range params.GenreIDs {
			book.Genres = append(book.Genres, &models.Genre{ID: genreID})
		}
		opts.UpdateGenres = true
	}
	if params.FormatIDs != nil {
		book.Formats = nil
		for _, formatID := range params.FormatIDs {
			book.Formats = append(book.Formats, &models.Format{ID: formatID})
		}
		opts.UpdateFormats = true
	}
	if params.LocationIDs != nil {
		book.Locations = nil
		for _, locationID := range params.LocationIDs {
			book.Locations = append(book.Locations, &models.Location{ID: locationID})
		}
		opts.UpdateLocations = true
	}

	// Update the model.
	err = h.bookService.UpdateBook(ctx, book, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the model.
	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.bookService.DeleteBook(ctx, book); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
