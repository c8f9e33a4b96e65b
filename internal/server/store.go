package server

import (
	"sync"
	"time"

	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/validation"
)

// Store holds the served index. A reload replaces the index wholesale;
// a failed reload keeps the previous one.
type Store struct {
	mu       sync.RWMutex
	path     string
	current  *index.Index
	loadedAt time.Time
}

// NewStore creates a store for the index file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Index returns the current index.
func (s *Store) Index() (*index.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, errors.ErrNotReady
	}
	return s.current, nil
}

// LoadedAt returns when the current index was loaded.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Set replaces the current index.
func (s *Store) Set(idx *index.Index) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = idx
	s.loadedAt = time.Now()
}

// Load reads the index file. An index the validator rejects is not
// served.
func (s *Store) Load() (*index.Index, error) {
	if s.path == "" {
		return nil, &errors.ValidationError{Field: "index_path", Message: "no index file configured"}
	}
	idx, err := index.Load(s.path)
	if err != nil {
		return nil, err
	}
	report := validation.Validate(idx)
	if err := report.Err(false); err != nil {
		return nil, errors.WrapResource("load", "index", s.path, err)
	}
	s.Set(idx)
	return idx, nil
}
