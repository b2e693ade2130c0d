package readings

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveReadingOptions struct {
	ID     *int
	UserID *int
}

type ListReadingsOptions struct {
	Limit  *int
	Offset *int
	BookID *int
	UserID *int

	includeTotal bool
}

type UpdateReadingOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func isDuplicateStartDate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "readings.book_id") && strings.Contains(err.Error(), "UNIQUE")
}

// CreateReading inserts a manually tracked reading. Two readings of the same
// book can't start on the same day; that collision surfaces as a validation
// error.
func (svc *Service) CreateReading(ctx context.Context, reading *models.Reading) error {
	now := time.Now()
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = now
	}
	reading.UpdatedAt = reading.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(reading).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if isDuplicateStartDate(err) {
			return errcodes.DuplicateReading()
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveReading(ctx context.Context, opts RetrieveReadingOptions) (*models.Reading, error) {
	reading := &models.Reading{}

	q := svc.db.
		NewSelect().
		Model(reading).
		Relation("Book")

	if opts.ID != nil {
		q = q.Where("r.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("r.book_id IN (SELECT id FROM books WHERE user_id = ?)", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Reading")
		}
		return nil, errors.WithStack(err)
	}

	return reading, nil
}

func (svc *Service) ListReadings(ctx context.Context, opts ListReadingsOptions) ([]*models.Reading, error) {
	r, _, err := svc.listReadingsWithTotal(ctx, opts)
	return r, errors.WithStack(err)
}

func (svc *Service) ListReadingsWithTotal(ctx context.Context, opts ListReadingsOptions) ([]*models.Reading, int, error) {
	opts.includeTotal = true
	return svc.listReadingsWithTotal(ctx, opts)
}

func (svc *Service) listReadingsWithTotal(ctx context.Context, opts ListReadingsOptions) ([]*models.Reading, int, error) {
	readings := []*models.Reading{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&readings).
		Order("r.start_date DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.BookID != nil {
		q = q.Where("r.book_id = ?", *opts.BookID)
	}
	if opts.UserID != nil {
		q = q.Where("r.book_id IN (SELECT id FROM books WHERE user_id = ?)", *opts.UserID)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return readings, total, nil
}

func (svc *Service) UpdateReading(ctx context.Context, reading *models.Reading, opts UpdateReadingOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	reading.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(reading).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Reading")
		}
		if isDuplicateStartDate(err) {
			return errcodes.DuplicateReading()
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteReading(ctx context.Context, reading *models.Reading) error {
	_, err := svc.db.
		NewDelete().
		Model(reading).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}
