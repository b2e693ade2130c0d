package covers

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"golang.org/x/image/draw"
)

type RetrieveCoverOptions struct {
	ID     *int
	UserID *int
}

type Service struct {
	db        *bun.DB
	coversDir string
	maxWidth  int
}

func NewService(db *bun.DB, coversDir string, maxWidth int) *Service {
	return &Service{db: db, coversDir: coversDir, maxWidth: maxWidth}
}

func (svc *Service) RetrieveCover(ctx context.Context, opts RetrieveCoverOptions) (*models.Cover, error) {
	cover := &models.Cover{}

	q := svc.db.
		NewSelect().
		Model(cover).
		Relation("Book")

	if opts.ID != nil {
		q = q.Where("cv.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("cv.book_id IN (SELECT id FROM books WHERE user_id = ?)", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Cover")
		}
		return nil, errors.WithStack(err)
	}

	return cover, nil
}

// SaveCoverFromURL downloads an image and stores it as a cover for the book.
// Used by the import pipeline, where a failed download is ignored by the
// caller rather than failing the row.
func (svc *Service) SaveCoverFromURL(ctx context.Context, book *models.Book, coverURL string) (*models.Cover, error) {
	if coverURL == "" {
		return nil, errcodes.ValidationError("Cover URL can't be empty.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errcodes.UpstreamUnavailable("The cover host")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errcodes.UpstreamUnavailable("The cover host")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.SaveCover(ctx, book, data, &coverURL)
}

// SaveCover validates, resizes, and persists raw image bytes as a cover.
func (svc *Service) SaveCover(ctx context.Context, book *models.Book, data []byte, sourceURL *string) (*models.Cover, error) {
	mtype := mimetype.Detect(data)
	if !mtype.Is("image/jpeg") && !mtype.Is("image/png") {
		return nil, errcodes.ValidationError("Covers must be JPEG or PNG images.")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errcodes.ValidationError("The cover image couldn't be decoded.")
	}

	img = svc.resize(img)
	bounds := img.Bounds()

	encoded := &bytes.Buffer{}
	if mtype.Is("image/png") {
		err = png.Encode(encoded, img)
	} else {
		err = jpeg.Encode(encoded, img, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	filename := fmt.Sprintf("%s-%s%s", slug.Make(book.Title), uuid.NewString(), mtype.Extension())
	if err := os.MkdirAll(svc.coversDir, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := os.WriteFile(filepath.Join(svc.coversDir, filename), encoded.Bytes(), 0o644); err != nil {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	cover := &models.Cover{
		BookID:      book.ID,
		Filename:    filename,
		MimeType:    mtype.String(),
		ImageWidth:  bounds.Dx(),
		ImageHeight: bounds.Dy(),
		SourceURL:   sourceURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = svc.db.
		NewInsert().
		Model(cover).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return cover, nil
}

// resize scales the image down to the configured max width, preserving
// aspect ratio. Images already narrow enough pass through untouched.
func (svc *Service) resize(img image.Image) image.Image {
	bounds := img.Bounds()
	if svc.maxWidth <= 0 || bounds.Dx() <= svc.maxWidth {
		return img
	}

	height := bounds.Dy() * svc.maxWidth / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, svc.maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// CoverPath returns the on-disk path for a stored cover.
func (svc *Service) CoverPath(cover *models.Cover) string {
	return filepath.Join(svc.coversDir, filepath.Base(cover.Filename))
}

func (svc *Service) DeleteCover(ctx context.Context, cover *models.Cover) error {
	_, err := svc.db.
		NewDelete().
		Model(cover).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	// Best effort; a missing file isn't worth failing the request over.
	path := svc.CoverPath(cover)
	if strings.HasPrefix(path, svc.coversDir) {
		_ = os.Remove(path)
	}

	return nil
}
