package genres

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

type RetrieveGenreOptions struct {
	ID   *int
	Slug *string
	Name *string
}

type ListGenresOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateGenreOptions struct {
	Columns []string
}

// FilterCountsOptions scope the facet counts to one user's visible books.
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

func (svc *Service) CreateGenre(ctx context.Context, genre *models.Genre) error {
	now := time.Now()
	if genre.CreatedAt.IsZero() {
		genre.CreatedAt = now
	}
	genre.UpdatedAt = genre.CreatedAt
	if genre.Slug == "" {
		genre.Slug = slug.Make(genre.Name)
	}

	_, err := svc.db.
		NewInsert().
		Model(genre).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return errcodes.ValidationError("A genre with this name already exists.")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveGenre(ctx context.Context, opts RetrieveGenreOptions) (*models.Genre, error) {
	genre := &models.Genre{}

	q := svc.db.
		NewSelect().
		Model(genre).
		Relation("Parent")

	if opts.ID != nil {
		q = q.Where("g.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("g.slug = ?", *opts.Slug)
	}
	if opts.Name != nil {
		q = q.Where("g.name = ? COLLATE NOCASE", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Genre")
		}
		return nil, errors.WithStack(err)
	}

	return genre, nil
}

// FindOrCreateGenre matches by name case-insensitively, creating the genre
// when it doesn't exist yet. Used by the import pipeline.
func (svc *Service) FindOrCreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError("Genre name can't be empty.")
	}

	genre, err := svc.RetrieveGenre(ctx, RetrieveGenreOptions{Name: &name})
	if err == nil {
		return genre, nil
	}
	if !errors.Is(err, errcodes.NotFound("Genre")) {
		return nil, errors.WithStack(err)
	}

	genre = &models.Genre{Name: name}
	if err := svc.CreateGenre(ctx, genre); err != nil {
		return nil, errors.WithStack(err)
	}

	return genre, nil
}

func (svc *Service) ListGenres(ctx context.Context, opts ListGenresOptions) ([]*models.Genre, error) {
	g, _, err := svc.listGenresWithTotal(ctx, opts)
	return g, errors.WithStack(err)
}

func (svc *Service) ListGenresWithTotal(ctx context.Context, opts ListGenresOptions) ([]*models.Genre, int, error) {
	opts.includeTotal = true
	return svc.listGenresWithTotal(ctx, opts)
}

func (svc *Service) listGenresWithTotal(ctx context.Context, opts ListGenresOptions) ([]*models.Genre, int, error) {
	genres := []*models.Genre{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&genres).
		Relation("Parent").
		Order("g.name ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Search != nil {
		q = q.Where("g.name LIKE ?", "%"+*opts.Search+"%")
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return genres, total, nil
}

func (svc *Service) UpdateGenre(ctx context.Context, genre *models.Genre, opts UpdateGenreOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	genre.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(genre).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Genre")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteGenre(ctx context.Context, genre *models.Genre) error {
	_, err := svc.db.
		NewDelete().
		Model(genre).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// FilterCounts computes the sidebar facet counts for the genre taxonomy in
// two phases: one grouped pass over the book/genre relation scoped to the
// user's visible books, then an in-memory fold of children into their roots.
// Genres are many-valued per book, so the fold uses a distinct union.
func (svc *Service) FilterCounts(ctx context.Context, opts FilterCountsOptions) (map[string]taxonomy.RootCount, error) {
	genres, err := svc.ListGenres(ctx, ListGenresOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	slugsByID := make(map[int]string, len(genres))
	for _, g := range genres {
		slugsByID[g.ID] = g.Slug
	}

	nodes := make([]taxonomy.Node, 0, len(genres))
	for _, g := range genres {
		node := taxonomy.Node{ID: g.ID, Name: g.Name, Slug: g.Slug}
		if g.ParentID != nil {
			if parentSlug, ok := slugsByID[*g.ParentID]; ok {
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
		TableExpr("book_genres AS bg").
		ColumnExpr("g.slug AS slug").
		ColumnExpr("bg.book_id AS book_id").
		Join("JOIN genres AS g ON g.id = bg.genre_id").
		Join("JOIN books AS b ON b.id = bg.book_id").
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

	return taxonomy.FilterCounts(nodes, membership, true), nil
}
