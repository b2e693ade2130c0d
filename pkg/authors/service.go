package authors

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveAuthorOptions struct {
	ID     *int
	UserID *int
	Name   *string
}

type ListAuthorsOptions struct {
	Limit  *int
	Offset *int
	UserID *int
	Search *string

	includeTotal bool
}

type UpdateAuthorOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) RetrieveAuthor(ctx context.Context, opts RetrieveAuthorOptions) (*models.Author, error) {
	author := &models.Author{}

	q := svc.db.
		NewSelect().
		Model(author)

	if opts.ID != nil {
		q = q.Where("a.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("a.user_id = ?", *opts.UserID)
	}
	if opts.Name != nil {
		q = q.Where("a.name = ? COLLATE NOCASE", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

// AuthorWithBookCount augments the author row with how many of the user's
// books carry it.
type AuthorWithBookCount struct {
	models.Author
	BookCount int `bun:"book_count" json:"book_count"`
}

func (svc *Service) ListAuthors(ctx context.Context, opts ListAuthorsOptions) ([]*AuthorWithBookCount, error) {
	a, _, err := svc.listAuthorsWithTotal(ctx, opts)
	return a, errors.WithStack(err)
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*AuthorWithBookCount, int, error) {
	opts.includeTotal = true
	return svc.listAuthorsWithTotal(ctx, opts)
}

func (svc *Service) listAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*AuthorWithBookCount, int, error) {
	authors := []*AuthorWithBookCount{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&authors).
		ColumnExpr("a.*").
		ColumnExpr("(SELECT count(*) FROM book_authors ba WHERE ba.author_id = a.id) AS book_count").
		Order("a.name ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.UserID != nil {
		q = q.Where("a.user_id = ?", *opts.UserID)
	}
	if opts.Search != nil {
		q = q.Where("a.name LIKE ?", "%"+*opts.Search+"%")
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return authors, total, nil
}

func (svc *Service) UpdateAuthor(ctx context.Context, author *models.Author, opts UpdateAuthorOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	author.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(author).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Author")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteAuthor(ctx context.Context, author *models.Author) error {
	_, err := svc.db.
		NewDelete().
		Model(author).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}
