// Package bbolt implements ports.SummaryStore using bbolt (embedded B+ tree).
// Summaries live as JSON under a content-hash key in the "summaries" bucket.
// Writes are transactional: a crash mid-write cannot corrupt previously
// committed data.
package bbolt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/octs/internal/ports"
)

// SchemaVersion is bumped whenever Summary changes shape. Opening a database
// written with another version drops its summaries.
const SchemaVersion = "1"

var (
	bucketSummaries = []byte("summaries")
	bucketMeta      = []byte("meta")
	keySchema       = []byte("schema")
)

var _ ports.SummaryStore = (*Store)(nil)

// Store implements ports.SummaryStore backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if string(meta.Get(keySchema)) != SchemaVersion {
			if err := tx.DeleteBucket(bucketSummaries); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			if err := meta.Put(keySchema, []byte(SchemaVersion)); err != nil {
				return err
			}
		}
		_, err = tx.CreateBucketIfNotExists(bucketSummaries)
		return err
	})
}

// Key derives the cache key for a language and the exact source bytes.
func Key(language string, source []byte) string {
	h := sha256.New()
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves a summary. Returns nil, nil on a miss.
func (s *Store) Get(key string) (*ports.Summary, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := tx.Bucket(bucketSummaries).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var sum ports.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("unmarshal summary %s: %w", key, err)
	}
	return &sum, nil
}

// Put stores a summary under key, replacing any previous value.
func (s *Store) Put(key string, summary *ports.Summary) error {
	if summary == nil {
		return fmt.Errorf("nil summary")
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSummaries).Put([]byte(key), data)
	})
}

// Delete removes a summary. Idempotent.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSummaries).Delete([]byte(key))
	})
}

// Len returns the number of stored summaries.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketSummaries).Stats().KeyN
		return nil
	})
	return n, err
}

// Purge drops every summary.
func (s *Store) Purge() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketSummaries); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketSummaries)
		return err
	})
}
