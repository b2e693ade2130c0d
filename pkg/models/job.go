package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobTypeImport = "import"
)

// ImportJobData is the payload for JobTypeImport: a CSV export uploaded by a
// user, saved to disk, waiting to be processed by the worker.
type ImportJobData struct {
	UserID   int    `json:"user_id"`
	Filepath string `json:"filepath"`
}

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID         int         `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	UserID     int         `bun:",nullzero" json:"user_id"`
	Type       string      `bun:",nullzero" json:"type"`
	Status     string      `bun:",nullzero" json:"status"`
	Data       string      `json:"-"`
	DataParsed interface{} `bun:"-" json:"data"`
	Progress   int         `json:"progress"`
	ProcessID  *string     `json:"process_id"`
}

// UnmarshalData parses the JSON Data column into DataParsed based on the job
// type.
func (j *Job) UnmarshalData() error {
	if j.Data == "" {
		return nil
	}

	switch j.Type {
	case JobTypeImport:
		data := &ImportJobData{}
		if err := json.Unmarshal([]byte(j.Data), data); err != nil {
			return errors.WithStack(err)
		}
		j.DataParsed = data
	}

	return nil
}

// ImportData returns the parsed import payload, unmarshaling it first if
// needed.
func (j *Job) ImportData() (*ImportJobData, error) {
	if j.DataParsed == nil {
		if err := j.UnmarshalData(); err != nil {
			return nil, err
		}
	}
	data, ok := j.DataParsed.(*ImportJobData)
	if !ok {
		return nil, errors.Errorf("job %d is not an import job", j.ID)
	}
	return data, nil
}
