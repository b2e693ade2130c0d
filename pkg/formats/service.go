package formats

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/bookstacks/bookstacks/pkg/taxonomy"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveFormatOptions struct {
	ID   *int
	Slug *string
	Name *string
}

type ListFormatsOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateFormatOptions struct {
	Columns []string
}

type FilterCountsOptions struct {
	UserID   int
	Status   *string
	Archived bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateFormat(ctx context.Context, format *models.Format) error {
	now := time.Now()
	if format.CreatedAt.IsZero() {
		format.CreatedAt = now
	}
	format.UpdatedAt = format.CreatedAt
	if format.Slug == "" {
		format.Slug = slug.Make(format.Name)
	}

	_, err := svc.db.
		NewInsert().
		Model(format).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return errcodes.ValidationError("A format with this name already exists.")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveFormat(ctx context.Context, opts RetrieveFormatOptions) (*models.Format, error) {
	format := &models.Format{}

	q := svc.db.
		NewSelect().
		Model(format)

	if opts.ID != nil {
		q = q.Where("fm.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("fm.slug = ?", *opts.Slug)
	}
	if opts.Name != nil {
		q = q.Where("fm.name = ? COLLATE NOCASE", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Format")
		}
		return nil, errors.WithStack(err)
	}

	return format, nil
}

func (svc *Service) ListFormats(ctx context.Context, opts ListFormatsOptions) ([]*models.Format, error) {
	f, _, err := svc.listFormatsWithTotal(ctx, opts)
	return f, errors.WithStack(err)
}

func (svc *Service) ListFormatsWithTotal(ctx context.Context, opts ListFormatsOptions) ([]*models.Format, int, error) {
	opts.includeTotal = true
	return svc.listFormatsWithTotal(ctx, opts)
}

func (svc *Service) listFormatsWithTotal(ctx context.Context, opts ListFormatsOptions) ([]*models.Format, int, error) {
	formats := []*models.Format{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&formats).
		Order("fm.name ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return formats, total, nil
}

func (svc *Service) UpdateFormat(ctx context.Context, format *models.Format, opts UpdateFormatOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	format.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(format).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Format")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteFormat(ctx context.Context, format *models.Format) error {
	_, err := svc.db.
		NewDelete().
		Model(format).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// FilterCounts computes facet counts for the format taxonomy. Formats are
// flat, so there is no parent fold; every node reports its own direct count.
func (svc *Service) FilterCounts(ctx context.Context, opts FilterCountsOptions) (map[string]int, error) {
	formats, err := svc.ListFormats(ctx, ListFormatsOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	nodes := make([]taxonomy.Node, 0, len(formats))
	for _, f := range formats {
		nodes = append(nodes, taxonomy.Node{ID: f.ID, Name: f.Name, Slug: f.Slug})
	}

	rows := []struct {
		Slug   string `bun:"slug"`
		BookID int    `bun:"book_id"`
	}{}

	q := svc.db.
		NewSelect().
		TableExpr("book_formats AS bf").
		ColumnExpr("fm.slug AS slug").
		ColumnExpr("bf.book_id AS book_id").
		Join("JOIN formats AS fm ON fm.id = bf.format_id").
		Join("JOIN books AS b ON b.id = bf.book_id").
		Where("b.user_id = ?", opts.UserID).
		Where("b.archived = ?", opts.Archived)
	if opts.Status != nil {
		q = q.Where("b.status = ?", *opts.Status)
	}

	err = q.Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	membership := taxonomy.Membership{}
	for _, row := range rows {
		membership[row.Slug] = append(membership[row.Slug], row.BookID)
	}

	return taxonomy.FlatCounts(nodes, membership), nil
}
