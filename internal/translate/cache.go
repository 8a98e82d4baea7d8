// Package translate memoizes line-level lyric translations. Lookups are
// keyed by the exact source text plus language pair; concurrent misses for
// the same key are coalesced into a single backend request.
package translate

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/SebastianCl/letra-cancion/pkg/ai"
)

var logger = log.With().Str("component", "translate").Logger()

// Store persists translations across sessions. Implementations must treat
// a missing key as (found == false), not as an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool)
	Put(ctx context.Context, key, value string)
}

type key struct {
	text    string
	srcLang string
	tgtLang string
}

// Cache is the session translation cache. Unbounded; entries live until the
// process exits, optionally mirrored into a Store.
type Cache struct {
	backend ai.Translator
	store   Store

	mu      sync.RWMutex
	entries map[key]string
	group   singleflight.Group
}

// NewCache builds a cache over the given backend. store may be nil.
func NewCache(backend ai.Translator, store Store) *Cache {
	return &Cache{
		backend: backend,
		store:   store,
		entries: make(map[key]string),
	}
}

// Translate returns the translation for text. Cache hits return
// immediately; on a miss exactly one backend request per distinct key is in
// flight, and later callers wait on its result. On failure the original
// text comes back along with the error, and nothing is cached, so the next
// access retries.
func (c *Cache) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || IsInstrumental(trimmed) {
		return text, nil
	}

	k := key{text: text, srcLang: srcLang, tgtLang: tgtLang}
	c.mu.RLock()
	cached, ok := c.entries[k]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	sfKey := srcLang + "\x00" + tgtLang + "\x00" + text
	v, err, _ := c.group.Do(sfKey, func() (interface{}, error) {
		// A racing caller may have filled the entry while this call
		// waited on the flight group.
		c.mu.RLock()
		cached, ok := c.entries[k]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		storeKey := persistKey(k)
		if c.store != nil {
			if persisted, found := c.store.Get(ctx, storeKey); found {
				c.put(k, persisted)
				return persisted, nil
			}
		}

		if c.backend == nil {
			return nil, fmt.Errorf("no translation backend configured")
		}
		translated, err := c.backend.Translate(ctx, text, srcLang, tgtLang)
		if err != nil {
			return nil, err
		}
		c.put(k, translated)
		if c.store != nil {
			c.store.Put(ctx, storeKey, translated)
		}
		return translated, nil
	})
	if err != nil {
		logger.Warn().Err(err).Str("tgt", tgtLang).Msg("Translation failed, keeping original text")
		return text, err
	}
	return v.(string), nil
}

// Cached returns a translation without touching the backend or the store.
func (c *Cache) Cached(text, srcLang, tgtLang string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key{text: text, srcLang: srcLang, tgtLang: tgtLang}]
	return v, ok
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) put(k key, v string) {
	c.mu.Lock()
	c.entries[k] = v
	c.mu.Unlock()
}

func persistKey(k key) string {
	sum := sha1.Sum([]byte(k.text))
	return fmt.Sprintf("translation:%s:%s:%s", k.tgtLang, k.srcLang, hex.EncodeToString(sum[:]))
}

var instrumentalRe = regexp.MustCompile(`(?i)^(\[.*\]|\(.*(instrumental|solo).*\)|instrumental|intro|outro|chorus|bridge|verse\s*\d*|[♪♫🎵🎶\*\s\-_.]+)$`)

// IsInstrumental reports whether a line carries no translatable content,
// like "[Instrumental]" markers or bare note symbols.
func IsInstrumental(text string) bool {
	t := strings.TrimSpace(text)
	if len([]rune(t)) < 2 {
		return true
	}
	return instrumentalRe.MatchString(t)
}
