package lrclib

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(serverURL string) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 1 * time.Second},
		baseURL:        serverURL,
		requestTimeout: 2 * time.Second,
		maxRetries:     1,
	}
}

func TestGetLyricsPrefersSynced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[
			{"id":1,"trackName":"Test Song","artistName":"Test Artist","duration":200,"plainLyrics":"plain only","syncedLyrics":""},
			{"id":2,"trackName":"Test Song","artistName":"Test Artist","duration":201,"plainLyrics":"plain too","syncedLyrics":"[00:01.00]synced line"}
		]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.GetLyrics(context.Background(), "Test Song", "Test Artist", 200)
	if err != nil {
		t.Fatalf("GetLyrics failed: %v", err)
	}
	if !result.Synced {
		t.Error("expected synced lyrics to win over plain")
	}
	if result.Text != "[00:01.00]synced line" {
		t.Errorf("unexpected lyric text: %q", result.Text)
	}
}

func TestGetLyricsPlainFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[
			{"id":1,"trackName":"Test Song","artistName":"Test Artist","duration":200,"plainLyrics":"just plain text","syncedLyrics":""}
		]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.GetLyrics(context.Background(), "Test Song", "Test Artist", 200)
	if err != nil {
		t.Fatalf("GetLyrics failed: %v", err)
	}
	if result.Synced {
		t.Error("expected plain lyrics, got synced flag")
	}
	if result.Text != "just plain text" {
		t.Errorf("unexpected lyric text: %q", result.Text)
	}
}

func TestGetLyricsDurationFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[
			{"id":1,"trackName":"Test Song","artistName":"Test Artist","duration":120,"plainLyrics":"","syncedLyrics":"[00:01.00]wrong cut"},
			{"id":2,"trackName":"Test Song","artistName":"Test Artist","duration":199,"plainLyrics":"","syncedLyrics":"[00:01.00]right cut"}
		]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.GetLyrics(context.Background(), "Test Song", "Test Artist", 200)
	if err != nil {
		t.Fatalf("GetLyrics failed: %v", err)
	}
	if result.Text != "[00:01.00]right cut" {
		t.Errorf("expected duration-matched result, got %q", result.Text)
	}
}

func TestGetLyricsNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.GetLyrics(context.Background(), "Unknown", "Nobody", 0); err == nil {
		t.Error("expected error for empty result set")
	}
}

func TestGetLyricsRetry(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":1,"trackName":"Test Song","artistName":"Test Artist","duration":200,"plainLyrics":"text","syncedLyrics":""}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.GetLyrics(context.Background(), "Test Song", "Test Artist", 200)
	if err != nil {
		t.Fatalf("GetLyrics failed: %v", err)
	}
	if requestCount != 2 {
		t.Errorf("expected 2 attempts, got %d", requestCount)
	}
	if result.Text != "text" {
		t.Errorf("unexpected lyric text: %q", result.Text)
	}
}
