package locations

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

type RetrieveLocationOptions struct {
	ID   *int
	Slug *string
	Name *string
}

type ListLocationsOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateLocationOptions struct {
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

func (svc *Service) CreateLocation(ctx context.Context, location *models.Location) error {
	now := time.Now()
	if location.CreatedAt.IsZero() {
		location.CreatedAt = now
	}
	location.UpdatedAt = location.CreatedAt
	if location.Slug == "" {
		location.Slug = slug.Make(location.Name)
	}

	_, err := svc.db.
		NewInsert().
		Model(location).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return errcodes.ValidationError("A location with this name already exists.")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveLocation(ctx context.Context, opts RetrieveLocationOptions) (*models.Location, error) {
	location := &models.Location{}

	q := svc.db.
		NewSelect().
		Model(location)

	if opts.ID != nil {
		q = q.Where("lo.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("lo.slug = ?", *opts.Slug)
	}
	if opts.Name != nil {
		q = q.Where("lo.name = ? COLLATE NOCASE", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Location")
		}
		return nil, errors.WithStack(err)
	}

	return location, nil
}

func (svc *Service) ListLocations(ctx context.Context, opts ListLocationsOptions) ([]*models.Location, error) {
	f, _, err := svc.listLocationsWithTotal(ctx, opts)
	return f, errors.WithStack(err)
}

func (svc *Service) ListLocationsWithTotal(ctx context.Context, opts ListLocationsOptions) ([]*models.Location, int, error) {
	opts.includeTotal = true
	return svc.listLocationsWithTotal(ctx, opts)
}

func (svc *Service) listLocationsWithTotal(ctx context.Context, opts ListLocationsOptions) ([]*models.Location, int, error) {
	locations := []*models.Location{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&locations).
		Order("lo.name ASC")

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

	return locations, total, nil
}

func (svc *Service) UpdateLocation(ctx context.Context, location *models.Location, opts UpdateLocationOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	location.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(location).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Location")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteLocation(ctx context.Context, location *models.Location) error {
	_, err := svc.db.
		NewDelete().
		Model(location).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// FilterCounts computes facet counts for the location taxonomy. Locations are
// flat, so there is no parent fold; every node reports its own direct count.
func (svc *Service) FilterCounts(ctx context.Context, opts FilterCountsOptions) (map[string]int, error) {
	locations, err := svc.ListLocations(ctx, ListLocationsOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	nodes := make([]taxonomy.Node, 0, len(locations))
	for _, f := range locations {
		nodes = append(nodes, taxonomy.Node{ID: f.ID, Name: f.Name, Slug: f.Slug})
	}

	rows := []struct {
		Slug   string `bun:"slug"`
		BookID int    `bun:"book_id"`
	}{}

	q := svc.db.
		NewSelect().
		TableExpr("book_locations AS bl").
		ColumnExpr("lo.slug AS slug").
		ColumnExpr("bl.book_id AS book_id").
		Join("JOIN locations AS lo ON lo.id = bl.location_id").
		Join("JOIN books AS b ON b.id = bl.book_id").
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
