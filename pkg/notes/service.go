package notes

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveNoteOptions struct {
	ID     *int
	UserID *int
}

type ListNotesOptions struct {
	Limit  *int
	Offset *int
	BookID *int
	UserID *int

	includeTotal bool
}

type UpdateNoteOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateNote(ctx context.Context, note *models.Note) error {
	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = note.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(note).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveNote(ctx context.Context, opts RetrieveNoteOptions) (*models.Note, error) {
	note := &models.Note{}

	q := svc.db.
		NewSelect().
		Model(note)

	if opts.ID != nil {
		q = q.Where("n.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("n.book_id IN (SELECT id FROM books WHERE user_id = ?)", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Note")
		}
		return nil, errors.WithStack(err)
	}

	return note, nil
}

func (svc *Service) ListNotes(ctx context.Context, opts ListNotesOptions) ([]*models.Note, error) {
	n, _, err := svc.listNotesWithTotal(ctx, opts)
	return n, errors.WithStack(err)
}

func (svc *Service) ListNotesWithTotal(ctx context.Context, opts ListNotesOptions) ([]*models.Note, int, error) {
	opts.includeTotal = true
	return svc.listNotesWithTotal(ctx, opts)
}

func (svc *Service) listNotesWithTotal(ctx context.Context, opts ListNotesOptions) ([]*models.Note, int, error) {
	notes := []*models.Note{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&notes).
		Order("n.created_at DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.BookID != nil {
		q = q.Where("n.book_id = ?", *opts.BookID)
	}
	if opts.UserID != nil {
		q = q.Where("n.book_id IN (SELECT id FROM books WHERE user_id = ?)", *opts.UserID)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return notes, total, nil
}

func (svc *Service) UpdateNote(ctx context.Context, note *models.Note, opts UpdateNoteOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	note.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(note).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Note")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteNote(ctx context.Context, note *models.Note) error {
	_, err := svc.db.
		NewDelete().
		Model(note).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}
