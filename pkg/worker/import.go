package worker

import (
	"context"
	"database/sql"
	"os"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ProcessImportJob runs a CSV import job end to end. The uploaded file is
// removed afterward whether or not the import succeeded.
func (w *Worker) ProcessImportJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)

	data, err := job.ImportData()
	if err != nil {
		return errors.WithStack(err)
	}
	defer os.Remove(data.Filepath)

	user := &models.User{}
	err = w.db.NewSelect().Model(user).Where("u.id = ?", data.UserID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("User")
		}
		return errors.WithStack(err)
	}

	count, err := w.importer.Run(ctx, user, data.Filepath)
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("import complete", logger.Data{"user_id": user.ID, "count": count})

	return nil
}
