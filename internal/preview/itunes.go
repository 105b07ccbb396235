package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"jhitster/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/sync/singleflight"
)

// DefaultSearchURL is the public iTunes search endpoint.
const DefaultSearchURL = "https://itunes.apple.com/search"

type searchResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		PreviewURL string `json:"previewUrl"`
	} `json:"results"`
}

// ITunes resolves preview clips through the iTunes search API. Answers, including songs with no
// match, are cached per song id for the life of the resolver.
type ITunes struct {
	searchURL string
	client    *http.Client
	logger    runtime.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[int]string
}

// NewITunes returns a resolver querying searchURL. A nil client gets a 10 second timeout.
func NewITunes(searchURL string, client *http.Client, logger runtime.Logger) *ITunes {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ITunes{
		searchURL: searchURL,
		client:    client,
		logger:    logger,
		cache:     make(map[int]string),
	}
}

// Resolve returns the preview URL for song, or "" when none exists. A URL carried by the song
// itself is returned without a lookup. Transport failures are returned and not cached.
func (r *ITunes) Resolve(ctx context.Context, song domain.Song) (string, error) {
	if song.PreviewURL != "" {
		return song.PreviewURL, nil
	}
	if u, ok := r.cached(song.ID); ok {
		return u, nil
	}

	v, err, _ := r.group.Do(strconv.Itoa(song.ID), func() (interface{}, error) {
		if u, ok := r.cached(song.ID); ok {
			return u, nil
		}
		u, err := r.search(ctx, song)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.cache[song.ID] = u
		r.mu.Unlock()
		if u == "" {
			r.logger.Debug("ITunes: no preview for %q by %q.", song.Title, song.Artist)
		}
		return u, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *ITunes) cached(id int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.cache[id]
	return u, ok
}

func (r *ITunes) search(ctx context.Context, song domain.Song) (string, error) {
	q := url.Values{}
	q.Set("term", song.Artist+" "+song.Title)
	q.Set("limit", "1")
	q.Set("media", "music")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.searchURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("itunes search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("itunes search: unexpected status %d", resp.StatusCode)
	}
	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode itunes response: %w", err)
	}
	if len(body.Results) == 0 {
		return "", nil
	}
	return body.Results[0].PreviewURL, nil
}
