// Package docstore persists the per-session document cache in BadgerDB.
package docstore

import (
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/finmate-ai/voice-platform/internal/model"
)

// ErrNotFound is returned when a session has no cached document.
var ErrNotFound = errors.New("docstore: not found")

const keyPrefix = "doc:"

// Store is a session-keyed DocumentContext cache. Each new upload replaces
// the previous entry wholesale.
type Store struct {
	db *badger.DB
}

// Options configures the store.
type Options struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string

	// InMemory runs Badger without disk persistence. Used in tests.
	InMemory bool
}

// Open creates or opens the document cache.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("docstore: Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("docstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Put caches the document context for a session, replacing any previous one.
func (s *Store) Put(sessionID string, doc *model.DocumentContext) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(sessionID), data)
	})
}

// Get returns the cached document context for a session.
func (s *Store) Get(sessionID string) (*model.DocumentContext, error) {
	var doc model.DocumentContext
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes the cached document for a session. Deleting a missing
// entry is not an error.
func (s *Store) Delete(sessionID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(sessionID))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(sessionID string) []byte {
	return []byte(keyPrefix + sessionID)
}
