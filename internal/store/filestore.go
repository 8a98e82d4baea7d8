// Package store provides the flat-file key/value cache used when redis is
// not configured. One entry per line, "key => quoted-value", loaded on open
// and appended on write.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const separator = " => "

// ErrNotFound is returned for keys the store has never seen.
var ErrNotFound = errors.New("not found")

// FileStore is an append-only key/value file with an in-memory index.
type FileStore struct {
	path string

	mu      sync.RWMutex
	entries map[string]string
}

// Open loads (or creates) the store at path.
func Open(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileStore{path: path, entries: make(map[string]string)}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		key, quoted, found := strings.Cut(scanner.Text(), separator)
		if !found {
			continue
		}
		value, err := strconv.Unquote(quoted)
		if err != nil {
			continue
		}
		s.entries[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store file %s: %w", path, err)
	}
	return s, nil
}

// Get returns the stored value for key, or ErrNotFound.
func (s *FileStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Put stores a value and appends it to the backing file. Re-putting an
// existing key updates memory and appends a newer record; the last record
// for a key wins on the next load.
func (s *FileStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok && old == value {
		return nil
	}
	s.entries[key] = value

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open store file %s: %w", s.path, err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%s%s%s\n", key, separator, strconv.Quote(value))
	if err != nil {
		return fmt.Errorf("failed to append to store file %s: %w", s.path, err)
	}
	return nil
}

// Len reports the number of distinct keys loaded.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
