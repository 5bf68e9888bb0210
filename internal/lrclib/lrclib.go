// Package lrclib is a client for the lrclib.net synced lyrics API.
package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/orin-music/orin-api/internal/titles"
)

const (
	defaultBaseURL = "https://lrclib.net/api"

	// requestDelay throttles calls so the public API is not hammered.
	requestDelay   = 500 * time.Millisecond
	requestTimeout = 10 * time.Second
)

// Lyrics is one lrclib record.
type Lyrics struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Client talks to lrclib with built-in throttling. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	delay   time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// New creates a Client against the public lrclib API.
func New() *Client {
	return NewWithBaseURL(defaultBaseURL)
}

// NewWithBaseURL creates a Client against a custom endpoint.
func NewWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		delay:   requestDelay,
	}
}

// throttle sleeps until the request delay has passed since the previous call.
// The lock is held across the wait so concurrent callers queue up behind the
// delay instead of racing through it.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wait := c.delay - time.Since(c.lastCall)
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.lastCall = time.Now()
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build lrclib request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lrclib request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lrclib returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode lrclib response: %w", err)
	}
	return nil
}

var errNotFound = fmt.Errorf("lrclib: not found")

// FindSyncedLyrics looks up synced lyrics for a track. Three strategies are
// tried in order: an exact lookup with duration, an exact lookup without
// duration, then a free-text search picking the closest duration. Each exact
// lookup walks the feature-credit title variations.
func (c *Client) FindSyncedLyrics(ctx context.Context, artist, title string, duration float64) (*Lyrics, error) {
	variations := titles.TitleVariations(title)

	for _, v := range variations {
		q := url.Values{}
		q.Set("artist_name", artist)
		q.Set("track_name", v)
		q.Set("duration", strconv.Itoa(int(duration)))

		var lyrics Lyrics
		err := c.get(ctx, "/get", q, &lyrics)
		if err == nil && lyrics.SyncedLyrics != "" {
			return &lyrics, nil
		}
		if err != nil && err != errNotFound && ctx.Err() != nil {
			return nil, err
		}
	}

	for _, v := range variations {
		q := url.Values{}
		q.Set("artist_name", artist)
		q.Set("track_name", v)

		var lyrics Lyrics
		err := c.get(ctx, "/get", q, &lyrics)
		if err == nil && lyrics.SyncedLyrics != "" {
			return &lyrics, nil
		}
		if err != nil && err != errNotFound && ctx.Err() != nil {
			return nil, err
		}
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s %s", artist, title))

	var results []Lyrics
	if err := c.get(ctx, "/search", q, &results); err != nil {
		if err == errNotFound {
			return nil, fmt.Errorf("no synced lyrics found for %s - %s", artist, title)
		}
		return nil, err
	}

	var synced []Lyrics
	for _, r := range results {
		if r.SyncedLyrics != "" {
			synced = append(synced, r)
		}
	}
	if len(synced) == 0 {
		return nil, fmt.Errorf("no synced lyrics found for %s - %s", artist, title)
	}

	sort.SliceStable(synced, func(i, j int) bool {
		return math.Abs(synced[i].Duration-duration) < math.Abs(synced[j].Duration-duration)
	})
	return &synced[0], nil
}

// GetByID fetches one lyrics record by its lrclib id.
func (c *Client) GetByID(ctx context.Context, id int64) (*Lyrics, error) {
	var lyrics Lyrics
	err := c.get(ctx, fmt.Sprintf("/get/%d", id), nil, &lyrics)
	if err == errNotFound {
		return nil, fmt.Errorf("lrclib id %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &lyrics, nil
}
