package readings

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bookstacks/bookstacks/pkg/books"
	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	readingService *Service
	bookService    *books.Service
}

func currentUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return nil, errcodes.Unauthorized("You must be logged in.")
	}
	return user, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	return d, errors.WithStack(err)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := ListReadingsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	readings, total, err := h.readingService.ListReadingsWithTotal(ctx, ListReadingsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		BookID: params.BookID,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Readings []*models.Reading `json:"readings"`
		Total    int               `json:"total"`
	}{readings, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := CreateReadingPayload{}
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

	startDate, err := parseDate(params.StartDate)
	if err != nil {
		return errcodes.ValidationError("start_date is invalid")
	}

	reading := &models.Reading{
		BookID:    params.BookID,
		StartDate: startDate,
		Finished:  params.Finished,
		Rating:    params.Rating,
		Review:    params.Review,
		Format:    params.Format,
	}
	if params.EndDate != nil {
		endDate, err := parseDate(*params.EndDate)
		if err != nil {
			return errcodes.ValidationError("end_date is invalid")
		}
		reading.EndDate = &endDate
	}

	if err := h.readingService.CreateReading(ctx, reading); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, reading))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reading")
	}

	// Bind params.
	params := UpdateReadingPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	reading, err := h.readingService.RetrieveReading(ctx, RetrieveReadingOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateReadingOptions{Columns: []string{}}

	if params.StartDate != nil {
		startDate, err := parseDate(*params.StartDate)
		if err != nil {
			return errcodes.ValidationError("start_date is invalid")
		}
		reading.StartDate = startDate
		opts.Columns = append(opts.Columns, "start_date")
	}
	if params.EndDate != nil {
		endDate, err := parseDate(*params.EndDate)
		if err != nil {
			return errcodes.ValidationError("end_date is invalid")
		}
		reading.EndDate = &endDate
		opts.Columns = append(opts.Columns, "end_date")
	}
	if params.Finished != nil && *params.Finished != reading.Finished {
		reading.Finished = *params.Finished
		opts.Columns = append(opts.Columns, "finished")
	}
	if params.Rating != nil {
		reading.Rating = params.Rating
		opts.Columns = append(opts.Columns, "rating")
	}
	if params.Review != nil {
		reading.Review = params.Review
		opts.Columns = append(opts.Columns, "review")
	}
	if params.Format != nil {
		reading.Format = params.Format
		opts.Columns = append(opts.Columns, "format")
	}

	if err := h.readingService.UpdateReading(ctx, reading, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, reading))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reading")
	}

	reading, err := h.readingService.RetrieveReading(ctx, RetrieveReadingOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.readingService.DeleteReading(ctx, reading); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
