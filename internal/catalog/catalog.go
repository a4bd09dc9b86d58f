// Package catalog is a read-only client for a TMDB-compatible movie listing API.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crucial707/cinebrowse/internal/metrics"
	"github.com/crucial707/cinebrowse/internal/models"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the public TMDB v3 endpoint.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// ImageBaseURL serves poster and backdrop images.
const ImageBaseURL = "https://image.tmdb.org/t/p/"

// ListKind names one of the listings the browse page shows.
type ListKind string

const (
	Trending ListKind = "trending"
	TopRated ListKind = "top_rated"
	Popular  ListKind = "popular"
)

var listPaths = map[ListKind]string{
	Trending: "/trending/movie/week",
	TopRated: "/movie/top_rated",
	Popular:  "/movie/popular",
}

// ParseListKind validates a list name from a URL or CLI argument.
func ParseListKind(s string) (ListKind, bool) {
	k := ListKind(strings.ToLower(strings.TrimSpace(s)))
	_, ok := listPaths[k]
	return k, ok
}

// StatusError is returned when the catalog answers with a non-2xx status.
type StatusError struct {
	List   ListKind
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog %s: unexpected status %d", e.List, e.Status)
}

// Client calls the catalog API. The zero HTTP field uses a client with a 10s timeout.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New returns a Client for baseURL (DefaultBaseURL when empty).
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type movieJSON struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	BackdropPath string  `json:"backdrop_path"`
	PosterPath   string  `json:"poster_path"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	ReleaseDate  string  `json:"release_date"`
}

type listResponse struct {
	Results []movieJSON `json:"results"`
}

// List fetches one listing. A response without results yields an empty slice.
func (c *Client) List(ctx context.Context, kind ListKind) (movies []models.Movie, err error) {
	defer func() { metrics.IncCatalogFetch(string(kind), err == nil) }()

	path, ok := listPaths[kind]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown list %q", kind)
	}

	q := url.Values{}
	q.Set("api_key", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", kind, err)
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{List: kind, Status: resp.StatusCode}
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("catalog %s: decode: %w", kind, err)
	}

	movies = make([]models.Movie, 0, len(out.Results))
	for _, m := range out.Results {
		movies = append(movies, models.Movie{
			ID:           m.ID,
			Title:        m.Title,
			BackdropPath: m.BackdropPath,
			PosterPath:   m.PosterPath,
			Overview:     m.Overview,
			VoteAverage:  m.VoteAverage,
			ReleaseDate:  m.ReleaseDate,
		})
	}
	return movies, nil
}

// Rows holds the three listings shown on the browse page.
type Rows struct {
	Trending []models.Movie
	TopRated []models.Movie
	Popular  []models.Movie
}

// Featured returns the first trending movie, or nil.
func (r *Rows) Featured() *models.Movie {
	if r == nil || len(r.Trending) == 0 {
		return nil
	}
	return &r.Trending[0]
}

// Find returns the movie with id from any row, or nil.
func (r *Rows) Find(id int) *models.Movie {
	if r == nil {
		return nil
	}
	for _, row := range [][]models.Movie{r.Trending, r.TopRated, r.Popular} {
		for i := range row {
			if row[i].ID == id {
				return &row[i]
			}
		}
	}
	return nil
}

// Browse fetches all three listings concurrently. The first failure cancels
// the others and fails the batch.
func (c *Client) Browse(ctx context.Context) (*Rows, error) {
	rows := &Rows{}
	g, ctx := errgroup.WithContext(ctx)

	fetch := func(kind ListKind, dst *[]models.Movie) {
		g.Go(func() error {
			movies, err := c.List(ctx, kind)
			if err != nil {
				return err
			}
			*dst = movies
			return nil
		})
	}
	fetch(Trending, &rows.Trending)
	fetch(TopRated, &rows.TopRated)
	fetch(Popular, &rows.Popular)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ImageURL builds an image URL for a size such as "w500" or "original".
// An empty path yields "".
func ImageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return ImageBaseURL + size + path
}
