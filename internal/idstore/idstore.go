// Package idstore persists the set of message identifiers that have already
// been examined, so repeated runs do not report the same message twice.
//
// The file is rewritten as a whole on every Save. Two processes sharing one
// state file will lose each other's updates; runs must be serialized by
// whatever schedules them.
package idstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// ErrCorrupt is returned by Load when the state file exists but does not
// hold a JSON array of strings.
var ErrCorrupt = errors.New("corrupt state file")

// Set is a set of opaque message identifiers.
type Set map[string]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id and reports whether it was new.
func (s Set) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Len returns the number of identifiers.
func (s Set) Len() int { return len(s) }

// Sorted returns the identifiers in lexical order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Store keeps a Set in a single JSON file.
type Store struct {
	file string
}

// New returns a Store backed by filePath. Nothing is read until Load.
func New(filePath string) *Store {
	return &Store{file: filePath}
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.file }

// Load reads the state file. A missing file yields an empty set.
func (s *Store) Load() (Set, error) {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSet(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCorrupt, s.file, err)
	}
	return NewSet(ids...), nil
}

// Save replaces the state file with ids. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (s *Store) Save(ids Set) error {
	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.Marshal(ids.Sorted())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mailstat-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.file); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
