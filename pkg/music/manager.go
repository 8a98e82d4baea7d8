package music

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Provider names a lyric source.
type Provider string

const (
	// ProviderLRCLib is the primary source.
	ProviderLRCLib Provider = "lrclib"
	// ProviderNetEase is the fallback source.
	ProviderNetEase Provider = "netease"
)

var logger = log.With().Str("component", "music-manager").Logger()

// Manager chains lyric providers in priority order. Synced lyrics from any
// provider win immediately; a plain-lyrics hit is kept as a candidate while
// later providers get a chance to produce a synced one.
type Manager struct {
	providers []LyricsAPI
}

// NewManager creates a manager over the given providers.
func NewManager(providers []LyricsAPI) *Manager {
	if len(providers) == 0 {
		logger.Warn().Msg("No lyric providers configured")
		return &Manager{}
	}
	logger.Info().
		Int("provider_count", len(providers)).
		Str("primary_provider", providers[0].GetProviderName()).
		Msg("Lyrics manager initialized")
	return &Manager{providers: providers}
}

// FetchLyrics walks the provider chain for the query.
func (m *Manager) FetchLyrics(ctx context.Context, q Query) (*Result, error) {
	if len(m.providers) == 0 {
		return nil, fmt.Errorf("no lyric providers available")
	}

	var plainCandidate *Result
	var lastErr error
	for i, provider := range m.providers {
		logger.Info().
			Str("title", q.Title).
			Str("artist", q.Artist).
			Str("provider", provider.GetProviderName()).
			Int("attempt", i+1).
			Int("total_providers", len(m.providers)).
			Msg("Trying to get lyrics")

		text, synced, err := provider.FetchLyrics(ctx, q.Title, q.Artist, q.DurationSec)
		if err != nil {
			logger.Warn().
				Str("provider", provider.GetProviderName()).
				Err(err).
				Msg("Provider failed")
			lastErr = err
			continue
		}

		result := &Result{Text: text, Synced: synced, Provider: provider.GetProviderName()}
		if result.Synced {
			logger.Info().
				Str("provider", provider.GetProviderName()).
				Msg("Got synced lyrics")
			return result, nil
		}
		if plainCandidate == nil {
			logger.Info().
				Str("provider", provider.GetProviderName()).
				Msg("Got plain lyrics, keeping as candidate")
			plainCandidate = result
		}
	}

	if plainCandidate != nil {
		return plainCandidate, nil
	}
	return nil, fmt.Errorf("all providers failed to get lyrics for '%s - %s', last error: %w",
		q.Title, q.Artist, lastErr)
}

// GetProviderName implements LyricsAPI so a Manager can stand in for a
// single provider.
func (m *Manager) GetProviderName() string {
	if len(m.providers) > 0 {
		return fmt.Sprintf("Manager[Primary: %s]", m.providers[0].GetProviderName())
	}
	return "Manager[No Providers]"
}

// GetProviderCount reports how many sources are chained.
func (m *Manager) GetProviderCount() int {
	return len(m.providers)
}
