package books

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

type RetrieveBookOptions struct {
	ID     *int
	UserID *int
	Title  *string
}

type ListBooksOptions struct {
	Limit        *int
	Offset       *int
	UserID       *int
	Status       *string
	Archived     *bool
	Search       *string
	GenreSlug    *string
	TypeSlug     *string
	FormatSlug   *string
	LocationSlug *string
	AuthorID     *int

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns         []string
	UpdateAuthors   bool
	UpdateGenres    bool
	UpdateFormats   bool
	UpdateLocations bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// isDuplicateTitle detects the unique index on (user_id, title COLLATE
// NOCASE) so a collision surfaces as a field-level validation error instead
// of a 500.
func isDuplicateTitle(err error) bool {
	return err != nil && strings.Contains(err.Error(), "books.user_id") && strings.Contains(err.Error(), "UNIQUE")
}

// CreateBook inserts the book along with its tagged authors and taxonomy
// values, then runs the status transition for a brand-new book: created
// directly in "reading" it gets an open reading starting today. No status
// change row is recorded since there is no prior status.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			if isDuplicateTitle(err) {
				return errcodes.DuplicateTitle()
			}
			return errors.WithStack(err)
		}

		if err := svc.replaceAuthors(ctx, tx, book); err != nil {
			return errors.WithStack(err)
		}
		if err := svc.replaceJoins(ctx, tx, book); err != nil {
			return errors.WithStack(err)
		}

		effects := ComputeTransitionEffects(nil, book.Status)
		return errors.WithStack(svc.applyReadingEffect(ctx, tx, book.ID, effects.Reading))
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// CreateImportedBook inserts a book that came from a CSV export. Unlike
// CreateBook it records no reading: the importer builds readings itself from
// the dates in the export.
func (svc *Service) CreateImportedBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt
	book.Imported = true

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			if isDuplicateTitle(err) {
				return errcodes.DuplicateTitle()
			}
			return errors.WithStack(err)
		}

		if err := svc.replaceAuthors(ctx, tx, book); err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(svc.replaceJoins(ctx, tx, book))
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Type").
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("a.name ASC")
		}).
		Relation("Genres", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("g.name ASC")
		}).
		Relation("Formats").
		Relation("Locations").
		Relation("Readings", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("r.start_date DESC")
		}).
		Relation("StatusChanges", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("sc.created_at ASC", "sc.id ASC")
		}).
		Relation("Notes", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("n.created_at DESC")
		}).
		Relation("Covers")

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("b.user_id = ?", *opts.UserID)
	}
	if opts.Title != nil {
		q = q.Where("b.title = ? COLLATE NOCASE", *opts.Title)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	book.PopulateDerived()

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Type").
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("a.name ASC")
		}).
		Relation("Genres").
		Relation("Formats").
		Relation("Locations").
		Relation("Readings", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("r.start_date DESC")
		}).
		Order("b.title ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.UserID != nil {
		q = q.Where("b.user_id = ?", *opts.UserID)
	}
	if opts.Status != nil {
		q = q.Where("b.status = ?", *opts.Status)
	}
	if opts.Archived != nil {
		q = q.Where("b.archived = ?", *opts.Archived)
	}
	if opts.Search != nil {
		q = q.Where("b.title LIKE ?", "%"+*opts.Search+"%")
	}
	if opts.AuthorID != nil {
		q = q.Where("b.id IN (SELECT book_id FROM book_authors WHERE author_id = ?)", *opts.AuthorID)
	}
	if opts.GenreSlug != nil {
		// A root genre matches books tagged with it or any of its children.
		q = q.Where(`b.id IN (
			SELECT bg.book_id FROM book_genres bg
			JOIN genres g ON g.id = bg.genre_id
			WHERE g.slug = ? OR g.parent_id = (SELECT id FROM genres WHERE slug = ?)
		)`, *opts.GenreSlug, *opts.GenreSlug)
	}
	if opts.TypeSlug != nil {
		q = q.Where(`b.type_id IN (
			SELECT id FROM book_types
			WHERE slug = ? OR parent_id = (SELECT id FROM book_types WHERE slug = ?)
		)`, *opts.TypeSlug, *opts.TypeSlug)
	}
	if opts.FormatSlug != nil {
		q = q.Where(`b.id IN (
			SELECT bf.book_id FROM book_formats bf
			JOIN formats fm ON fm.id = bf.format_id
			WHERE fm.slug = ?
		)`, *opts.FormatSlug)
	}
	if opts.LocationSlug != nil {
		q = q.Where(`b.id IN (
			SELECT bl.book_id FROM book_locations bl
			JOIN locations lo ON lo.id = bl.location_id
			WHERE lo.slug = ?
		)`, *opts.LocationSlug)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, book := range books {
		book.PopulateDerived()
	}

	return books, total, nil
}

// StatusCounts returns how many non-archived books the user has in each
// status, in one grouped pass. Statuses with no books are present with a
// zero count so the sidebar can render every tab.
func (svc *Service) StatusCounts(ctx context.Context, userID int) (map[string]int, error) {
	rows := []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}{}

	err := svc.db.
		NewSelect().
		Model((*models.Book)(nil)).
		Column("status").
		ColumnExpr("count(*) AS count").
		Where("user_id = ?", userID).
		Where("archived = ?", false).
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	counts := make(map[string]int, len(models.Statuses))
	for _, status := range models.Statuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}

// UpdateBook persists the given columns. When the status column is among
// them, the transition runs in the same transaction: the previously
// persisted status is read back, a status change row is appended if it
// differs, and the reading side effect is applied.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	relations := opts.UpdateAuthors || opts.UpdateGenres || opts.UpdateFormats || opts.UpdateLocations
	if len(opts.Columns) == 0 && !relations {
		return nil
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		effects := TransitionEffects{}
		if containsColumn(opts.Columns, "status") {
			var oldStatus string
			err := tx.
				NewSelect().
				Model((*models.Book)(nil)).
				Column("status").
				Where("id = ?", book.ID).
				Scan(ctx, &oldStatus)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return errcodes.NotFound("Book")
				}
				return errors.WithStack(err)
			}
			effects = ComputeTransitionEffects(&oldStatus, book.Status)
			if effects.RecordChange {
				change := &models.StatusChange{
					BookID:    book.ID,
					OldStatus: oldStatus,
					NewStatus: book.Status,
					CreatedAt: time.Now(),
				}
				_, err = tx.NewInsert().Model(change).Exec(ctx)
				if err != nil {
					return errors.WithStack(err)
				}
			}
		}

		if opts.UpdateAuthors {
			_, err := tx.
				NewDelete().
				Model((*models.BookAuthor)(nil)).
				Where("book_id = ?", book.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if err := svc.replaceAuthors(ctx, tx, book); err != nil {
				return errors.WithStack(err)
			}
		}
		if relations {
			if err := svc.deleteJoins(ctx, tx, book, opts); err != nil {
				return errors.WithStack(err)
			}
			if err := svc.replaceJoins(ctx, tx, book); err != nil {
				return errors.WithStack(err)
			}
		}

		if len(opts.Columns) > 0 {
			book.UpdatedAt = time.Now()
			columns := append(opts.Columns, "updated_at")

			_, err := tx.
				NewUpdate().
				Model(book).
				Column(columns...).
				WherePK().
				Exec(ctx)
			if err != nil {
				if isDuplicateTitle(err) {
					return errcodes.DuplicateTitle()
				}
				return errors.WithStack(err)
			}
		}

		return errors.WithStack(svc.applyReadingEffect(ctx, tx, book.ID, effects.Reading))
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteBook(ctx context.Context, book *models.Book) error {
	// Readings, status changes, notes, covers, and join rows cascade via
	// foreign keys.
	_, err := svc.db.
		NewDelete().
		Model(book).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// applyReadingEffect executes the reading side of a status transition.
// Finish and abandon close the latest open reading; when none is open the
// transition is status-only and nothing happens.
func (svc *Service) applyReadingEffect(ctx context.Context, tx bun.Tx, bookID int, effect ReadingEffect) error {
	today := startOfDay(time.Now())

	switch effect {
	case ReadingEffectNone:
		return nil

	case ReadingEffectStart:
		now := time.Now()
		reading := &models.Reading{
			BookID:    bookID,
			StartDate: today,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err := tx.NewInsert().Model(reading).Exec(ctx)
		// Re-entering "reading" twice on the same day collides with the
		// (book_id, start_date) unique index.
		if err != nil && strings.Contains(err.Error(), "readings.book_id") && strings.Contains(err.Error(), "UNIQUE") {
			return errcodes.DuplicateReading()
		}
		return errors.WithStack(err)

	case ReadingEffectFinish, ReadingEffectAbandon:
		reading := &models.Reading{}
		err := tx.
			NewSelect().
			Model(reading).
			Where("r.book_id = ?", bookID).
			Where("r.end_date IS NULL").
			Order("r.start_date DESC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return errors.WithStack(err)
		}

		reading.EndDate = &today
		reading.UpdatedAt = time.Now()
		columns := []string{"end_date", "updated_at"}
		if effect == ReadingEffectFinish {
			reading.Finished = true
			columns = append(columns, "finished")
		}

		_, err = tx.
			NewUpdate().
			Model(reading).
			Column(columns...).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	}

	return nil
}

// replaceAuthors finds or creates an author row per name on book.Authors and
// inserts the join rows. Callers clear the previous joins first when
// updating.
func (svc *Service) replaceAuthors(ctx context.Context, tx bun.Tx, book *models.Book) error {
	if len(book.Authors) == 0 {
		return nil
	}

	now := time.Now()
	for i, author := range book.Authors {
		if author.ID == 0 {
			existing := &models.Author{}
			err := tx.
				NewSelect().
				Model(existing).
				Where("a.user_id = ?", book.UserID).
				Where("a.name = ? COLLATE NOCASE", author.Name).
				Scan(ctx)
			switch {
			case err == nil:
				book.Authors[i] = existing
			case errors.Is(err, sql.ErrNoRows):
				author.UserID = book.UserID
				author.CreatedAt = now
				author.UpdatedAt = now
				_, err = tx.NewInsert().Model(author).Returning("*").Exec(ctx)
				if err != nil {
					return errors.WithStack(err)
				}
			default:
				return errors.WithStack(err)
			}
		}

		join := &models.BookAuthor{BookID: book.ID, AuthorID: book.Authors[i].ID}
		_, err := tx.NewInsert().Model(join).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

func (svc *Service) deleteJoins(ctx context.Context, tx bun.Tx, book *models.Book, opts UpdateBookOptions) error {
	if opts.UpdateGenres {
		_, err := tx.NewDelete().Model((*models.BookGenre)(nil)).Where("book_id = ?", book.ID).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	if opts.UpdateFormats {
		_, err := tx.NewDelete().Model((*models.BookFormat)(nil)).Where("book_id = ?", book.ID).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	if opts.UpdateLocations {
		_, err := tx.NewDelete().Model((*models.BookLocation)(nil)).Where("book_id = ?", book.ID).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (svc *Service) replaceJoins(ctx context.Context, tx bun.Tx, book *models.Book) error {
	for _, genre := range book.Genres {
		join := &models.BookGenre{BookID: book.ID, GenreID: genre.ID}
		_, err := tx.NewInsert().Model(join).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	for _, format := range book.Formats {
		join := &models.BookFormat{BookID: book.ID, FormatID: format.ID}
		_, err := tx.NewInsert().Model(join).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	for _, location := range book.Locations {
		join := &models.BookLocation{BookID: book.ID, LocationID: location.ID}
		_, err := tx.NewInsert().Model(join).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
