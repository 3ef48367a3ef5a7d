// Package manifest records which version of each paper has been ingested
// and which vector store documents it produced, so unchanged files can be
// skipped and changed or deleted files can have their chunks replaced.
//
// The manifest is a bbolt database next to the vector store data.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// FileName is the manifest database name inside a vector store directory.
const FileName = "manifest.db"

var (
	filesBucket = []byte("files")
	metaBucket  = []byte("meta")
)

var (
	// ErrLocked indicates another process holds the manifest open.
	ErrLocked = errors.New("manifest is locked by another process")

	// ErrClosed indicates the manifest was used after Close.
	ErrClosed = errors.New("manifest is closed")
)

// Entry describes one ingested file.
type Entry struct {
	Path        string    `json:"path"` // relative to the papers directory, slash-separated
	Hash        string    `json:"hash"` // sha256, hex
	ChunkIDs    []string  `json:"chunk_ids"`
	Pages       int       `json:"pages"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Manifest is an open manifest database.
type Manifest struct {
	db *bolt.DB
}

// Open opens or creates the manifest at path. It waits at most timeout for
// the file lock before failing with ErrLocked; zero means one second.
func Open(path string, timeout time.Duration) (*Manifest, error) {
	if timeout <= 0 {
		timeout = time.Second
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{filesBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Manifest{db: db}, nil
}

// Get returns the entry for relPath, or nil if the file was never ingested.
func (m *Manifest) Get(relPath string) (*Entry, error) {
	if m.db == nil {
		return nil, ErrClosed
	}

	var entry *Entry
	err := m.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(filesBucket).Get([]byte(relPath))
		if v == nil {
			return nil
		}
		entry = &Entry{}
		return json.Unmarshal(v, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest entry %s: %w", relPath, err)
	}
	return entry, nil
}

// Put stores entry under entry.Path.
func (m *Manifest) Put(entry *Entry) error {
	if m.db == nil {
		return ErrClosed
	}
	if entry.Path == "" {
		return errors.New("manifest entry path cannot be empty")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode manifest entry: %w", err)
	}

	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(filesBucket).Put([]byte(entry.Path), data)
	})
}

// Delete removes the entry for relPath. Deleting a missing entry is not an error.
func (m *Manifest) Delete(relPath string) error {
	if m.db == nil {
		return ErrClosed
	}
	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(filesBucket).Delete([]byte(relPath))
	})
}

// List returns all entries sorted by path.
func (m *Manifest) List() ([]*Entry, error) {
	if m.db == nil {
		return nil, ErrClosed
	}

	var entries []*Entry
	err := m.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(filesBucket).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("entry %s: %w", k, err)
			}
			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list manifest: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Meta returns a manifest-wide setting, or "" if unset.
func (m *Manifest) Meta(key string) (string, error) {
	if m.db == nil {
		return "", ErrClosed
	}
	var value string
	err := m.db.View(func(tx *bolt.Tx) error {
		value = string(tx.Bucket(metaBucket).Get([]byte(key)))
		return nil
	})
	return value, err
}

// SetMeta stores a manifest-wide setting.
func (m *Manifest) SetMeta(key, value string) error {
	if m.db == nil {
		return ErrClosed
	}
	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put([]byte(key), []byte(value))
	})
}

// Close releases the database and its file lock.
func (m *Manifest) Close() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}
