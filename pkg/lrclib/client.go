package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the LRCLib public API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
}

// Response is one LRCLib search result.
type Response struct {
	ID           int    `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	AlbumName    string `json:"albumName"`
	Duration     int    `json:"duration"`
	Instrumental bool   `json:"instrumental"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// SearchResponse is the search endpoint's list payload.
type SearchResponse []Response

// Result carries the chosen lyric text and whether it is time-stamped.
type Result struct {
	Text   string
	Synced bool
}

// NewClient builds a client for lrclib.net.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL:        "https://lrclib.net/api",
		requestTimeout: 5 * time.Second,
		maxRetries:     3,
	}
}

// GetProviderName returns the provider name.
func (c *Client) GetProviderName() string {
	return "LRCLib"
}

// FetchLyrics adapts GetLyrics to the provider-chain interface.
func (c *Client) FetchLyrics(ctx context.Context, title, artist string, durationSec int) (string, bool, error) {
	result, err := c.GetLyrics(ctx, title, artist, durationSec)
	if err != nil {
		return "", false, err
	}
	return result.Text, result.Synced, nil
}

// GetLyrics searches LRCLib and returns the best match. Synced lyrics are
// preferred; plain lyrics are returned with Synced == false.
func (c *Client) GetLyrics(ctx context.Context, title, artist string, durationSec int) (*Result, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)

	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("INFO: [LRCLib] Retrying request (attempt %d/%d)", attempt, c.maxRetries)
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
		}

		req, reqErr := http.NewRequestWithContext(timeoutCtx, "GET", searchURL, nil)
		if reqErr != nil {
			return nil, fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("User-Agent", "letra-cancion/1.0")

		resp, err = c.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if err != nil {
			log.Printf("WARN: [LRCLib] Request failed: %v (attempt %d/%d)", err, attempt+1, c.maxRetries)
		} else {
			log.Printf("WARN: [LRCLib] Request returned status %d (attempt %d/%d)", resp.StatusCode, attempt+1, c.maxRetries)
			resp.Body.Close()
		}

		if attempt == c.maxRetries {
			if err != nil {
				return nil, fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			return nil, fmt.Errorf("request failed after %d attempts with status %d", attempt+1, resp.StatusCode)
		}
	}

	defer resp.Body.Close()

	var results SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	log.Printf("INFO: [LRCLib] Found %d results for '%s - %s'", len(results), title, artist)
	if len(results) == 0 {
		return nil, fmt.Errorf("no lyrics found for '%s - %s'", title, artist)
	}

	best := c.findBestMatch(results, title, artist, durationSec)
	if best.SyncedLyrics != "" {
		log.Printf("INFO: [LRCLib] Selected synced lyrics for '%s - %s' (duration: %ds, target: %ds)",
			best.TrackName, best.ArtistName, best.Duration, durationSec)
		return &Result{Text: best.SyncedLyrics, Synced: true}, nil
	}
	if best.PlainLyrics != "" {
		log.Printf("INFO: [LRCLib] Selected plain lyrics for '%s - %s' (duration: %ds, target: %ds)",
			best.TrackName, best.ArtistName, best.Duration, durationSec)
		return &Result{Text: best.PlainLyrics, Synced: false}, nil
	}
	return nil, fmt.Errorf("selected result has no lyrics for '%s - %s'", title, artist)
}

// findBestMatch picks the result closest to the target track: exact
// title+artist matches first, then title matches, duration proximity as the
// final filter.
func (c *Client) findBestMatch(results SearchResponse, targetTitle, targetArtist string, targetDuration int) *Response {
	var exactMatches []*Response
	var titleMatches []*Response

	for i := range results {
		r := &results[i]
		if containsIgnoreCase(r.TrackName, targetTitle) && containsIgnoreCase(r.ArtistName, targetArtist) {
			exactMatches = append(exactMatches, r)
		} else if containsIgnoreCase(r.TrackName, targetTitle) {
			titleMatches = append(titleMatches, r)
		}
	}

	matchPool := exactMatches
	if len(matchPool) == 0 {
		matchPool = titleMatches
	}
	if len(matchPool) == 0 {
		matchPool = make([]*Response, len(results))
		for i := range results {
			matchPool[i] = &results[i]
		}
	}

	// Synced results beat plain ones regardless of duration proximity.
	var syncedPool []*Response
	for _, m := range matchPool {
		if m.SyncedLyrics != "" {
			syncedPool = append(syncedPool, m)
		}
	}
	if len(syncedPool) > 0 {
		matchPool = syncedPool
	}

	if targetDuration > 0 {
		const maxDurationDiff = 3 // seconds
		best := matchPool[0]
		minDiff := abs(best.Duration - targetDuration)

		for _, m := range matchPool {
			diff := abs(m.Duration - targetDuration)
			if diff <= maxDurationDiff {
				log.Printf("INFO: [LRCLib] Found duration match within threshold (%ds diff)", diff)
				return m
			}
			if diff < minDiff {
				minDiff = diff
				best = m
			}
		}
		log.Printf("INFO: [LRCLib] Using best duration match with %ds difference", minDiff)
		return best
	}

	return matchPool[0]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
