package formats

import (
	"net/http"
	"strconv"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	formatService *Service
}

type ListFormatsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"100" validate:"min=1,max=200"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type CreateFormatPayload struct {
	Name string `json:"name" validate:"required,max=100" mod:"trim"`
}

type UpdateFormatPayload struct {
	Name *string `json:"name,omitempty" validate:"omitempty,max=100" mod:"trim"`
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
	params := ListFormatsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	formats, total, err := h.formatService.ListFormatsWithTotal(ctx, ListFormatsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Formats []*models.Format `json:"formats"`
		Total   int              `json:"total"`
	}{formats, total}

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

	counts, err := h.formatService.FilterCounts(ctx, FilterCountsOptions{
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
	params := CreateFormatPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	format := &models.Format{Name: params.Name}
	if err := h.formatService.CreateFormat(ctx, format); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, format))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Format")
	}

	// Bind params.
	params := UpdateFormatPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	format, err := h.formatService.RetrieveFormat(ctx, RetrieveFormatOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateFormatOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != format.Name {
		format.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}

	if err := h.formatService.UpdateFormat(ctx, format, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, format))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Format")
	}

	format, err := h.formatService.RetrieveFormat(ctx, RetrieveFormatOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.formatService.DeleteFormat(ctx, format); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
