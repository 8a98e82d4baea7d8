package music

import (
	"context"
	"regexp"
)

// Query identifies the track lyrics are wanted for. DurationSec narrows
// provider matches when the playback source knows the track length.
type Query struct {
	Title       string
	Artist      string
	DurationSec int
}

// Result is one provider's answer. Synced reports whether Text carries LRC
// time tags; plain lyrics come back with Synced == false so the caller can
// fall into estimated scrolling instead of treating them as absent.
type Result struct {
	Text     string
	Synced   bool
	Provider string
}

// LyricsAPI is implemented by each lyric source. Plain parameter types keep
// the source packages free of any dependency on this one.
type LyricsAPI interface {
	// FetchLyrics returns the lyric text for a track and whether it is
	// time-stamped, or an error when the provider has nothing for it.
	FetchLyrics(ctx context.Context, title, artist string, durationSec int) (text string, synced bool, err error)

	// GetProviderName identifies the source for logging and status.
	GetProviderName() string
}

var timeTagRe = regexp.MustCompile(`\[\d{1,2}:\d{2}(?:[.:]\d{1,3})?\]`)

// LooksSynced reports whether text carries at least one LRC time tag.
func LooksSynced(text string) bool {
	return timeTagRe.MatchString(text)
}
