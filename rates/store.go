package rates

import (
	"sync"

	"github.com/etnz/valutatrade"
	"go.uber.org/zap"
)

// Store persists a Snapshot in a JSON file.
//
// The file is the single source of truth: every Load reads it again, and
// every Update replaces it atomically.
type Store struct {
	path string
	log  *zap.Logger

	mu sync.Mutex // serializes Update within the process
}

// NewStore returns a store backed by the file at path.
func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

func (s *Store) Path() string { return s.path }

// Load reads the current snapshot. A missing file is an empty snapshot.
//
// Records that fail validation, or whose key is not a valid pair, are
// dropped and logged.
func (s *Store) Load() (*Snapshot, error) {
	snap := NewSnapshot()
	if _, err := valutatrade.LoadJSON(s.path, snap); err != nil {
		return nil, err
	}
	if snap.Pairs == nil {
		snap.Pairs = make(map[string]Record)
	}
	for key, r := range snap.Pairs {
		p, err := valutatrade.ParsePairKey(key)
		if err == nil {
			err = r.Validate()
		}
		if err != nil {
			s.log.Warn("dropping invalid rate record", zap.String("file", s.path), zap.String("pair", key), zap.Error(err))
			delete(snap.Pairs, key)
			continue
		}
		if p.Key() != key {
			// lower case keys are accepted, but stored canonical.
			delete(snap.Pairs, key)
			snap.Pairs[p.Key()] = r
		}
	}
	return snap, nil
}

// Update loads the snapshot, applies fn and saves the result.
//
// Nothing is written if fn fails.
func (s *Store) Update(fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	return valutatrade.SaveJSON(s.path, snap)
}
