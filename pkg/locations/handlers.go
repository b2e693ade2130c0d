package locations

import (
	"net/http"
	"strconv"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	locationService *Service
}

type ListLocationsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"100" validate:"min=1,max=200"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type CreateLocationPayload struct {
	Name string `json:"name" validate:"required,max=100" mod:"trim"`
}

type UpdateLocationPayload struct {
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
	params := ListLocationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	locations, total, err := h.locationService.ListLocationsWithTotal(ctx, ListLocationsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Locations []*models.Location `json:"locations"`
		Total   int              `json:"total"`
	}{locations, total}

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

	counts, err := h.locationService.FilterCounts(ctx, FilterCountsOptions{
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
	params := CreateLocationPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	location := &models.Location{Name: params.Name}
	if err := h.locationService.CreateLocation(ctx, location); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, location))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Location")
	}

	// Bind params.
	params := UpdateLocationPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	location, err := h.locationService.RetrieveLocation(ctx, RetrieveLocationOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateLocationOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != location.Name {
		location.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}

	if err := h.locationService.UpdateLocation(ctx, location, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, location))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Location")
	}

	location, err := h.locationService.RetrieveLocation(ctx, RetrieveLocationOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.locationService.DeleteLocation(ctx, location); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
