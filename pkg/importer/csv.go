package importer

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/pkg/errors"
)

const (
	SourceGoodreads  = "Goodreads"
	SourceStoryGraph = "StoryGraph"
)

// Row is one record from an export file, normalized across sources.
type Row struct {
	Title             string
	Author            string
	AdditionalAuthors []string
	Shelf             string
	PublishedYear     *int
	Pages             *int
	DateAdded         string
	DateRead          string
	Rating            *int
	Review            string
}

// File is a fully parsed export.
type File struct {
	Source string
	Rows   []Row
}

// Parse reads a Goodreads or StoryGraph CSV export. The source is detected
// from the header row.
func Parse(r io.Reader) (*File, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(header) > 0 {
		// Exports from both sites can start with a UTF-8 BOM.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	columns := map[string]int{}
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	source := detectSource(columns)

	file := &File{Source: source}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}

		get := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		var row Row
		if source == SourceStoryGraph {
			row = storyGraphRow(get)
		} else {
			row = goodreadsRow(get)
		}
		if row.Title == "" {
			continue
		}
		file.Rows = append(file.Rows, row)
	}

	return file, nil
}

func detectSource(columns map[string]int) string {
	if _, ok := columns["Read Status"]; ok {
		return SourceStoryGraph
	}
	if _, ok := columns["Star Rating"]; ok {
		return SourceStoryGraph
	}
	return SourceGoodreads
}

func goodreadsRow(get func(string) string) Row {
	shelf := get("Exclusive Shelf")
	if shelf == "" {
		shelf = get("Bookshelves")
	}
	if shelf == "" {
		shelf = "to-read"
	}

	year := get("Original Publication Year")
	if year == "" {
		year = get("Year Published")
	}

	return Row{
		Title:             get("Title"),
		Author:            get("Author"),
		AdditionalAuthors: splitNames(get("Additional Authors")),
		Shelf:             shelf,
		PublishedYear:     parseIntField(year),
		Pages:             parseIntField(get("Number of Pages")),
		DateAdded:         get("Date Added"),
		DateRead:          get("Date Read"),
		Rating:            parseRating(get("My Rating")),
		Review:            get("My Review"),
	}
}

func storyGraphRow(get func(string) string) Row {
	authors := splitNames(get("Authors"))
	var main string
	var additional []string
	if len(authors) > 0 {
		main = authors[0]
		additional = authors[1:]
	}

	shelf := get("Read Status")
	if shelf == "" {
		shelf = "to-read"
	}

	return Row{
		Title:             get("Title"),
		Author:            main,
		AdditionalAuthors: additional,
		Shelf:             shelf,
		DateAdded:         get("Date Added"),
		DateRead:          get("Last Date Read"),
		Rating:            parseRating(get("Star Rating")),
		Review:            get("Review"),
	}
}

// statusFromShelf maps an export shelf name onto a book status. Unknown
// shelves land on the wishlist.
func statusFromShelf(shelf string) string {
	switch shelf {
	case "to-read":
		return models.StatusWishlist
	case "currently-reading":
		return models.StatusReading
	case "read":
		return models.StatusFinished
	case "abandoned", "did-not-finish":
		return models.StatusDNF
	}
	return models.StatusWishlist
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

func parseIntField(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// parseRating accepts both integer and half-star ratings. Zero means the
// book was never rated.
func parseRating(s string) *int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return nil
	}
	n := int(math.Round(f))
	if n > 5 {
		n = 5
	}
	return &n
}
