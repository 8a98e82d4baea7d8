package music

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	name   string
	text   string
	synced bool
	err    error
	calls  int
}

func (s *stubProvider) FetchLyrics(context.Context, string, string, int) (string, bool, error) {
	s.calls++
	if s.err != nil {
		return "", false, s.err
	}
	return s.text, s.synced, nil
}

func (s *stubProvider) GetProviderName() string { return s.name }

func TestFetchLyricsSyncedWinsImmediately(t *testing.T) {
	first := &stubProvider{name: "first", text: "[00:01.00]synced", synced: true}
	second := &stubProvider{name: "second", text: "plain", synced: false}
	m := NewManager([]LyricsAPI{first, second})

	result, err := m.FetchLyrics(context.Background(), Query{Title: "Song", Artist: "Artist"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !result.Synced || result.Provider != "first" {
		t.Errorf("result = %+v, want synced from first", result)
	}
	if second.calls != 0 {
		t.Error("second provider should not have been consulted")
	}
}

func TestFetchLyricsFallsBackOnError(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("not found")}
	second := &stubProvider{name: "second", text: "[00:01.00]synced", synced: true}
	m := NewManager([]LyricsAPI{first, second})

	result, err := m.FetchLyrics(context.Background(), Query{Title: "Song", Artist: "Artist"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if result.Provider != "second" {
		t.Errorf("provider = %s, want second", result.Provider)
	}
}

func TestFetchLyricsPlainKeptWhileSeekingSynced(t *testing.T) {
	first := &stubProvider{name: "first", text: "plain lyrics", synced: false}
	second := &stubProvider{name: "second", text: "[00:01.00]synced", synced: true}
	m := NewManager([]LyricsAPI{first, second})

	result, err := m.FetchLyrics(context.Background(), Query{Title: "Song", Artist: "Artist"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	// The later synced hit beats the earlier plain candidate.
	if !result.Synced || result.Provider != "second" {
		t.Errorf("result = %+v, want synced from second", result)
	}
	if first.calls != 1 {
		t.Errorf("first provider calls = %d, want 1", first.calls)
	}
}

func TestFetchLyricsPlainCandidateReturned(t *testing.T) {
	first := &stubProvider{name: "first", text: "plain lyrics", synced: false}
	second := &stubProvider{name: "second", err: errors.New("not found")}
	m := NewManager([]LyricsAPI{first, second})

	result, err := m.FetchLyrics(context.Background(), Query{Title: "Song", Artist: "Artist"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if result.Synced {
		t.Error("expected plain result")
	}
	if result.Text != "plain lyrics" || result.Provider != "first" {
		t.Errorf("result = %+v", result)
	}
}

func TestFetchLyricsAllFail(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("nope")}
	second := &stubProvider{name: "second", err: errors.New("also nope")}
	m := NewManager([]LyricsAPI{first, second})

	if _, err := m.FetchLyrics(context.Background(), Query{Title: "Song", Artist: "Artist"}); err == nil {
		t.Fatal("expected error when every provider fails")
	}
}

func TestFetchLyricsNoProviders(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.FetchLyrics(context.Background(), Query{Title: "Song"}); err == nil {
		t.Fatal("expected error with no providers")
	}
	if got := m.GetProviderName(); got != "Manager[No Providers]" {
		t.Errorf("name = %q", got)
	}
}

func TestLooksSynced(t *testing.T) {
	if !LooksSynced("[00:12.34]hello") {
		t.Error("expected tag to be detected")
	}
	if LooksSynced("no tags here") {
		t.Error("expected plain text")
	}
}
