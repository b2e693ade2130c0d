package imports

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/jobs"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const maxUploadSize = 50 << 20 // 50MB

type handler struct {
	jobService *jobs.Service
	uploadDir  string
}

func currentUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get("user").(*models.User)
	if !ok || user == nil {
		return nil, errcodes.Unauthorized("You must be logged in.")
	}
	return user, nil
}

// create accepts a CSV export upload, stashes it on disk, and schedules an
// import job. The request returns as soon as the job is queued.
func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := currentUser(c)
	if err != nil {
		return errors.WithStack(err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errcodes.ValidationError("A CSV file is required.")
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		return errcodes.ValidationError("Only CSV exports can be imported.")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return errors.WithStack(err)
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+".csv")
	dst, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxUploadSize)); err != nil {
		os.Remove(path)
		return errors.WithStack(err)
	}

	job := &models.Job{
		UserID: user.ID,
		Type:   models.JobTypeImport,
		Status: models.JobStatusPending,
		DataParsed: &models.ImportJobData{
			UserID:   user.ID,
			Filepath: path,
		},
	}
	err = h.jobService.CreateJob(ctx, job)
	if err != nil {
		os.Remove(path)
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusAccepted, job))
}
