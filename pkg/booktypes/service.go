package booktypes

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

type RetrieveTypeOptions struct {
	ID   *int
	Slug *string
	Name *string
}

type ListTypesOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateTypeOptions struct {
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

func (svc *Service) CreateType(ctx context.Context, typ *models.BookType) error {
	now := time.Now()
	if typ.CreatedAt.IsZero() {
		typ.CreatedAt = now
	}
	typ.UpdatedAt = typ.CreatedAt
	if typ.Slug == "" {
		typ.Slug = slug.Make(typ.Name)
	}

	_, err := svc.db.
		NewInsert().
		Model(typ).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return errcodes.ValidationError("A type with this name already exists.")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveType(ctx context.Context, opts RetrieveTypeOptions) (*models.BookType, error) {
	typ := &models.BookType{}

	q := svc.db.
		NewSelect().
		Model(typ).
		Relation("Parent")

	if opts.ID != nil {
		q = q.Where("ty.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("ty.slug = ?", *opts.Slug)
	}
	if opts.Name != nil {
		q = q.Where("ty.name = ? COLLATE NOCASE", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Type")
		}
		return nil, errors.WithStack(err)
	}

	return typ, nil
}

func (svc *Service) ListTypes(ctx context.Context, opts ListTypesOptions) ([]*models.BookType, error) {
	t, _, err := svc.listTypesWithTotal(ctx, opts)
	return t, errors.WithStack(err)
}

func (svc *Service) ListTypesWithTotal(ctx context.Context, opts ListTypesOptions) ([]*models.BookType, int, error) {
	opts.includeTotal = true
	return svc.listTypesWithTotal(ctx, opts)
}

func (svc *Service) listTypesWithTotal(ctx context.Context, opts ListTypesOptions) ([]*models.BookType, int, error) {
	types := []*models.BookType{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&types).
		Relation("Parent").
		Order("ty.name ASC")

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

	return types, total, nil
}

func (svc *Service) UpdateType(ctx context.Context, typ *models.BookType, opts UpdateTypeOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	typ.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(typ).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Type")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteType(ctx context.Context, typ *models.BookType) error {
	_, err := svc.db.
		NewDelete().
		Model(typ).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// FilterCounts computes facet counts for the type taxonomy. A book has at
// most one type, so folding children into roots uses plain summation; the
// distinct-union pass genres need would be wasted work here.
func (svc *Service) FilterCounts(ctx context.Context, opts FilterCountsOptions) (map[string]taxonomy.RootCount, error) {
	types, err := svc.ListTypes(ctx, ListTypesOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	slugsByID := make(map[int]string, len(types))
	for _, t := range types {
		slugsByID[t.ID] = t.Slug
	}

	nodes := make([]taxonomy.Node, 0, len(types))
	for _, t := range types {
		node := taxonomy.Node{ID: t.ID, Name: t.Name, Slug: t.Slug}
		if t.ParentID != nil {
			if parentSlug, ok := slugsByID[*t.ParentID]; ok {
				node.ParentSlug = &parentSlug
			}
		}
		nodes = append(nodes, node)
	}

	rows := []struct {
		Slug   string `bun:"slug"`
		BookID int    `bun:"book_id"`
	}{}

	q := svc.db.
		NewSelect().
		TableExpr("books AS b").
		ColumnExpr("ty.slug AS slug").
		ColumnExpr("b.id AS book_id").
		Join("JOIN book_types AS ty ON ty.id = b.type_id").
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

	return taxonomy.FilterCounts(nodes, membership, false), nil
}
