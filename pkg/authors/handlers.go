package authors

import (
	"net/http"
	"strconv"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	authorService *Service
}

type ListAuthorsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"100" validate:"min=1,max=200"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100" mod:"trim"`
}

type UpdateAuthorPayload struct {
	Name *string `json:"name,omitempty" validate:"omitempty,max=200" mod:"trim"`
	Bio  *string `json:"bio,omitempty" validate:"omitempty,max=10000"`
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
	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		UserID: &user.ID,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Authors []*AuthorWithBookCount `json:"authors"`
		Total   int                    `json:"total"`
	}{authors, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	// Bind params.
	params := UpdateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateAuthorOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != author.Name {
		author.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Bio != nil {
		author.Bio = params.Bio
		opts.Columns = append(opts.Columns, "bio")
	}

	if err := h.authorService.UpdateAuthor(ctx, author, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID:     &id,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.authorService.DeleteAuthor(ctx, author); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
