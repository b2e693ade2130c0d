package importer

import (
	"context"
	"os"
	"time"

	"github.com/araddon/dateparse"
	"github.com/bookstacks/bookstacks/pkg/books"
	"github.com/bookstacks/bookstacks/pkg/covers"
	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/mailer"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// Importer turns a parsed CSV export into books, readings, and notes for one
// user. Rows whose title the user already has are skipped.
type Importer struct {
	db          *bun.DB
	bookService *books.Service
	coverSvc    *covers.Service
	coverClient *covers.Client
	mail        *mailer.Mailer
}

func New(db *bun.DB, coverSvc *covers.Service, coverClient *covers.Client, mail *mailer.Mailer) *Importer {
	return &Importer{
		db:          db,
		bookService: books.NewService(db),
		coverSvc:    coverSvc,
		coverClient: coverClient,
		mail:        mail,
	}
}

// Run imports every row in the file at path and emails the user when done.
// It returns the number of books created.
func (imp *Importer) Run(ctx context.Context, user *models.User, path string) (int, error) {
	log := logger.FromContext(ctx)

	f, err := os.Open(path)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer f.Close()

	file, err := Parse(f)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	count := 0
	for _, row := range file.Rows {
		created, err := imp.importRow(ctx, user, row)
		if err != nil {
			log.Err(err).Warn("import row error", logger.Data{"title": row.Title})
			continue
		}
		if created {
			count++
		}
	}

	err = imp.mail.SendImportComplete(ctx, user.Email, file.Source, count)
	if err != nil {
		log.Err(err).Warn("import completion email error")
	}

	return count, nil
}

func (imp *Importer) importRow(ctx context.Context, user *models.User, row Row) (bool, error) {
	status := statusFromShelf(row.Shelf)

	book := &models.Book{
		UserID:        user.ID,
		Title:         row.Title,
		Status:        status,
		PublishedYear: row.PublishedYear,
		Pages:         row.Pages,
	}
	if row.Author != "" {
		book.Authors = append(book.Authors, &models.Author{Name: row.Author})
	}
	for _, name := range row.AdditionalAuthors {
		book.Authors = append(book.Authors, &models.Author{Name: name})
	}

	err := imp.bookService.CreateImportedBook(ctx, book)
	if err != nil {
		if errors.Is(err, errcodes.DuplicateTitle()) {
			// The user already has this book.
			return false, nil
		}
		return false, errors.WithStack(err)
	}

	imp.fetchCover(ctx, book, row.Author)

	if err := imp.createReading(ctx, book, row, status); err != nil {
		return false, errors.WithStack(err)
	}

	if row.Review != "" {
		now := time.Now()
		note := &models.Note{BookID: book.ID, Text: row.Review, CreatedAt: now, UpdatedAt: now}
		if _, err := imp.db.NewInsert().Model(note).Exec(ctx); err != nil {
			return false, errors.WithStack(err)
		}
	}

	return true, nil
}

// fetchCover looks the book up on Open Library and grabs the best cover it
// can. Failures only lose the cover, never the row.
func (imp *Importer) fetchCover(ctx context.Context, book *models.Book, author string) {
	log := logger.FromContext(ctx)

	result, err := imp.coverClient.Search(ctx, book.Title, author)
	if err != nil {
		log.Err(err).Warn("cover search error", logger.Data{"book_id": book.ID})
		return
	}

	var match *covers.Match
	if len(result.Matches) > 0 {
		match = &result.Matches[0]
	} else if result.Fallback != nil {
		match = result.Fallback
	}
	if match == nil {
		return
	}

	if match.OLID != nil {
		book.OLID = match.OLID
		err := imp.bookService.UpdateBook(ctx, book, books.UpdateBookOptions{Columns: []string{"olid"}})
		if err != nil {
			log.Err(err).Warn("save olid error", logger.Data{"book_id": book.ID})
		}
	}

	if match.CoverURL != nil {
		_, err := imp.coverSvc.SaveCoverFromURL(ctx, book, *match.CoverURL)
		if err != nil {
			log.Err(err).Warn("cover fetch error", logger.Data{"book_id": book.ID})
		}
	}
}

// createReading builds the reading implied by the row's shelf. Dates that
// fail to parse fall back to today, and a start after the end is clamped to
// the end.
func (imp *Importer) createReading(ctx context.Context, book *models.Book, row Row, status string) error {
	now := time.Now()

	switch status {
	case models.StatusReading:
		start, err := dateparse.ParseAny(row.DateAdded)
		if err != nil {
			start = now
		}
		reading := &models.Reading{
			BookID:    book.ID,
			StartDate: startOfDay(start),
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err = imp.db.NewInsert().Model(reading).Exec(ctx)
		return errors.WithStack(err)

	case models.StatusFinished:
		start, startErr := dateparse.ParseAny(row.DateAdded)
		end, endErr := dateparse.ParseAny(row.DateRead)
		if startErr != nil || endErr != nil {
			start = now
			end = now
		}
		if start.After(end) {
			start = end
		}

		endDate := startOfDay(end)
		reading := &models.Reading{
			BookID:    book.ID,
			StartDate: startOfDay(start),
			EndDate:   &endDate,
			Finished:  true,
			Rating:    row.Rating,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err := imp.db.NewInsert().Model(reading).Exec(ctx)
		return errors.WithStack(err)
	}

	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
