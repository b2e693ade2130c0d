package covers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bookstacks/bookstacks/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Match is one Open Library search result that can prefill a book form.
type Match struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Published *int    `json:"published"`
	OLID     *string  `json:"olid"`
	Pages    *int     `json:"pages"`
	CoverURL *string  `json:"cover,omitempty"`
}

// SearchResult distinguishes matches that come with a cover image from the
// fallback case where Open Library knew the book but had no cover for it.
type SearchResult struct {
	Matches  []Match `json:"matches"`
	Fallback *Match  `json:"fallback,omitempty"`
}

// Client talks to the Open Library search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type searchDoc struct {
	Title              string   `json:"title"`
	AuthorName         []string `json:"author_name"`
	CoverI             *int     `json:"cover_i"`
	CoverEditionKey    *string  `json:"cover_edition_key"`
	FirstPublishYear   *int     `json:"first_publish_year"`
	NumberOfPagesMedian *int    `json:"number_of_pages_median"`
	Key                string   `json:"key"`
}

type searchResponse struct {
	Docs []searchDoc `json:"docs"`
}

// Search queries Open Library by title and author. Results carrying a cover
// image become Matches; when none of the docs has a cover, the first doc is
// returned as the Fallback so at least the metadata can be used. Upstream
// failures surface as a retryable error, never a hard failure of the
// enclosing request.
func (c *Client) Search(ctx context.Context, title, author string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("limit", "10")
	params.Set("fields", "cover_i,cover_edition_key,title,author_name,number_of_pages_median,first_publish_year,key")
	if title != "" {
		params.Set("title", title)
	}
	if author != "" {
		params.Set("author", author)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errcodes.UpstreamUnavailable("Open Library")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errcodes.UpstreamUnavailable("Open Library")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errcodes.UpstreamUnavailable("Open Library")
	}

	data := searchResponse{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, errcodes.UpstreamUnavailable("Open Library")
	}

	result := &SearchResult{}
	for _, doc := range data.Docs {
		coverURL := coverImageURL(doc)
		if coverURL == nil {
			continue
		}
		result.Matches = append(result.Matches, Match{
			Title:     doc.Title,
			Authors:   doc.AuthorName,
			Published: doc.FirstPublishYear,
			OLID:      doc.CoverEditionKey,
			Pages:     doc.NumberOfPagesMedian,
			CoverURL:  coverURL,
		})
	}

	if len(result.Matches) == 0 && len(data.Docs) > 0 {
		doc := data.Docs[0]
		olid := doc.CoverEditionKey
		if olid == nil && doc.Key != "" {
			workID := strings.TrimPrefix(doc.Key, "/works/")
			olid = &workID
		}
		result.Fallback = &Match{
			Title:     doc.Title,
			Authors:   doc.AuthorName,
			Published: doc.FirstPublishYear,
			OLID:      olid,
			Pages:     doc.NumberOfPagesMedian,
		}
	}

	return result, nil
}

func coverImageURL(doc searchDoc) *string {
	switch {
	case doc.CoverI != nil:
		u := fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", *doc.CoverI)
		return &u
	case doc.CoverEditionKey != nil:
		u := fmt.Sprintf("https://covers.openlibrary.org/b/olid/%s-L.jpg", *doc.CoverEditionKey)
		return &u
	}
	return nil
}
