package binder

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Title  string `json:"title" mod:"trim" validate:"max=9"`
	Status string `json:"status" validate:"omitempty,status"`
	Date   string `json:"date" validate:"omitempty,date"`
}

var (
	goodJSON          = `{"title":" dune "}`
	unknownFieldsJSON = `{"title":"dune","foo":"bar"}`
	typeErrJSON       = `{"title":123}`
	validationErrJSON = `{"title":"0123456789"}`
	badStatusJSON     = `{"title":"dune","status":"available"}`
	badDateJSON       = `{"title":"dune","date":"12/25/2023"}`
)

func newContext(body, contentType string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestBind(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("rejects unsupported content types", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationXML)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("disallows unknown fields", func(tt *testing.T) {
		c := newContext(unknownFieldsJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("returns a good message for type errors", func(tt *testing.T) {
		c := newContext(typeErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"title" should be of type string`)
	})

	t.Run("uses mod tag to modify params", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, "dune", p.Title)
	})

	t.Run("uses validate tag to validate params", func(tt *testing.T) {
		c := newContext(validationErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"title" length must be less than or equal to 9 characters`)
	})

	t.Run("rejects unrecognized statuses", func(tt *testing.T) {
		c := newContext(badStatusJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"status" is not a recognized status`)
	})

	t.Run("rejects malformed dates", func(tt *testing.T) {
		c := newContext(badDateJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"date" should be in the format of YYYY-MM-DD`)
	})

	t.Run("disallows empty bodies on POST", func(tt *testing.T) {
		c := newContext("", echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Request body can't be empty.")
	})
}
