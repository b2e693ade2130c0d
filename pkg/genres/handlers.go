package genres

import (
	"net/http"
	"strconv"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	genreService *Service
}

type ListGenresQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"100" validate:"min=1,max=200"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100" mod:"trim"`
}

type CreateGenrePayload struct {
	Name     string `json:"name" validate:"required,max=100" mod:"trim"`
	ParentID *int   `json:"parent_id,omitempty" validate:"omitempty,min=1"`
}

type UpdateGenrePayload struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100" mod:"trim"`
	ParentID *int    `json:"parent_id,omitempty" validate:"omitempty,min=1"`
}

type CountsQuery struct {
	Status *string `query:"status" json:"status,omitempty" validate:"omitempty,status"`
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

	// Bind params.
	params := ListGenresQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	genres, total, err := h.genreService.ListGenresWithTotal(ctx, ListGenresOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Genres []*models.Genre `json:"genres"`
		Total  int             `json:"total"`
	}{genres, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) counts(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := CountsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	counts, err := h.genreService.FilterCounts(ctx, FilterCountsOptions{
		UserID: user.ID,
		Status: params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, counts))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateGenrePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	genre := &models.Genre{
		Name:     params.Name,
		ParentID: params.ParentID,
	}
	if err := h.genreService.CreateGenre(ctx, genre); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, genre))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Genre")
	}

	// Bind params.
	params := UpdateGenrePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	genre, err := h.genreService.RetrieveGenre(ctx, RetrieveGenreOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateGenreOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != genre.Name {
		genre.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.ParentID != nil {
		genre.ParentID = params.ParentID
		opts.Columns = append(opts.Columns, "parent_id")
	}

	if err := h.genreService.UpdateGenre(ctx, genre, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, genre))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Genre")
	}

	genre, err := h.genreService.RetrieveGenre(ctx, RetrieveGenreOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.genreService.DeleteGenre(ctx, genre); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
