package booktypes

import (
	"net/http"
	"strconv"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	typeService *Service
}

type ListTypesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"100" validate:"min=1,max=200"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type CreateTypePayload struct {
	Name     string `json:"name" validate:"required,max=100" mod:"trim"`
	ParentID *int   `json:"parent_id,omitempty" validate:"omitempty,min=1"`
}

type UpdateTypePayload struct {
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
	params := ListTypesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	types, total, err := h.typeService.ListTypesWithTotal(ctx, ListTypesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Types []*models.BookType `json:"types"`
		Total int                `json:"total"`
	}{types, total}

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

	counts, err := h.typeService.FilterCounts(ctx, FilterCountsOptions{
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
	params := CreateTypePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	typ := &models.BookType{
		Name:     params.Name,
		ParentID: params.ParentID,
	}
	if err := h.typeService.CreateType(ctx, typ); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, typ))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Type")
	}

	// Bind params.
	params := UpdateTypePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	typ, err := h.typeService.RetrieveType(ctx, RetrieveTypeOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateTypeOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != typ.Name {
		typ.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.ParentID != nil {
		typ.ParentID = params.ParentID
		opts.Columns = append(opts.Columns, "parent_id")
	}

	if err := h.typeService.UpdateType(ctx, typ, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, typ))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Type")
	}

	typ, err := h.typeService.RetrieveType(ctx, RetrieveTypeOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.typeService.DeleteType(ctx, typ); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
