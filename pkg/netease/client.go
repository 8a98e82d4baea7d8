package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SearchResponse is the NetEase song search payload.
type SearchResponse struct {
	Result struct {
		Songs []struct {
			ID      int    `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"songs"`
	} `json:"result"`
}

// LyricResponse is the NetEase lyric payload.
type LyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
	Tlyric struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`
}

// Client talks to the NetEase Cloud Music web API.
type Client struct {
	httpClient     *http.Client
	cookie         string
	maxRetries     int
	requestTimeout time.Duration
}

// NewClient builds a NetEase client. An optional NETEASE_COOKIE environment
// variable raises the API's trust level.
func NewClient() *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		cookie:         os.Getenv("NETEASE_COOKIE"),
		maxRetries:     3,
		requestTimeout: 10 * time.Second,
	}
}

// GetProviderName returns the provider name.
func (c *Client) GetProviderName() string {
	return "NetEase Cloud Music"
}

// FetchLyrics searches for the track and downloads its LRC text.
func (c *Client) FetchLyrics(ctx context.Context, title, artist string, _ int) (string, bool, error) {
	songID, err := c.SearchSong(ctx, title, artist)
	if err != nil {
		return "", false, err
	}
	text, err := c.GetLyrics(ctx, songID)
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(text) == "" {
		return "", false, fmt.Errorf("empty lyrics for song %s", songID)
	}
	return text, hasTimeTag(text), nil
}

// SearchSong finds the best-matching song ID for a title and artist.
func (c *Client) SearchSong(ctx context.Context, title, artist string) (string, error) {
	searchURL := fmt.Sprintf("https://music.163.com/api/search/get/web?csrf_token=hlpretag&hlposttag=&s=%s&type=1&limit=100", url.QueryEscape(title))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return "", fmt.Errorf("failed to send search request: %w", err)
	}
	defer resp.Body.Close()

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(searchResp.Result.Songs) == 0 {
		return "", fmt.Errorf("no songs found for '%s'", title)
	}

	songID := c.findBestMatch(searchResp, artist, title)
	if songID == 0 {
		return "", fmt.Errorf("no matching song found for '%s' by '%s'", title, artist)
	}
	return strconv.Itoa(songID), nil
}

// GetLyrics downloads the LRC text for a song ID.
func (c *Client) GetLyrics(ctx context.Context, songID string) (string, error) {
	lyricURL := fmt.Sprintf("http://music.163.com/api/song/lyric?os=pc&id=%s&lv=-1&kv=-1&tv=-1", songID)

	req, err := http.NewRequestWithContext(ctx, "GET", lyricURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create lyric request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return "", fmt.Errorf("failed to send lyric request: %w", err)
	}
	defer resp.Body.Close()

	var lyricResp LyricResponse
	if err := json.NewDecoder(resp.Body).Decode(&lyricResp); err != nil {
		return "", fmt.Errorf("failed to decode lyric response: %w", err)
	}
	return lyricResp.Lrc.Lyric, nil
}

// doRequestWithRetry retries transient failures and non-200 statuses with a
// linear backoff.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("INFO: [NetEase] Retrying request (attempt %d/%d)", attempt, c.maxRetries)
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
		}

		resp, err = c.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		if err != nil {
			log.Printf("WARN: [NetEase] Request failed: %v (attempt %d/%d)", err, attempt+1, c.maxRetries)
			continue
		}
		log.Printf("WARN: [NetEase] Request returned status %d (attempt %d/%d)", resp.StatusCode, attempt+1, c.maxRetries)
		resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, err)
	}
	return nil, fmt.Errorf("request failed after %d attempts with status %d", c.maxRetries+1, resp.StatusCode)
}

// findBestMatch prefers a song whose title and artist both match; falls back
// to the first title match.
func (c *Client) findBestMatch(resp SearchResponse, targetArtist, targetTitle string) int {
	for _, song := range resp.Result.Songs {
		if !containsIgnoreCase(song.Name, targetTitle) {
			continue
		}
		for _, artist := range song.Artists {
			if containsIgnoreCase(artist.Name, targetArtist) {
				log.Printf("INFO: [NetEase] Found matching song: %s by %s (ID: %d)", song.Name, artist.Name, song.ID)
				return song.ID
			}
		}
	}

	if len(resp.Result.Songs) > 0 && containsIgnoreCase(resp.Result.Songs[0].Name, targetTitle) {
		log.Printf("INFO: [NetEase] Using first matching song: %s (ID: %d)", resp.Result.Songs[0].Name, resp.Result.Songs[0].ID)
		return resp.Result.Songs[0].ID
	}
	return 0
}

var timeTagRe = regexp.MustCompile(`\[\d{1,2}:\d{2}(?:[.:]\d{1,3})?\]`)

func hasTimeTag(text string) bool {
	return timeTagRe.MatchString(text)
}

func normalizeString(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// containsIgnoreCase checks containment either way, ignoring case and spaces.
func containsIgnoreCase(s1, s2 string) bool {
	norm1, norm2 := normalizeString(s1), normalizeString(s2)
	return strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1)
}
