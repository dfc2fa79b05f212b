// Package bolt implements the db.Engine interface on top of go.etcd.io/bbolt.
//
// Logical partitions map directly onto bbolt buckets. The database lives in
// a single file named stratum.db inside the engine directory so that pebble
// and bolt stores share the same path convention.
package bolt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/stratumdb/stratum/pkg/db"
	"github.com/stratumdb/stratum/pkg/log"
)

const fileName = "stratum.db"

// Options configures the bolt engine.
type Options struct {
	// NoSync disables fsync on commit. This trades durability for
	// throughput and should be used with care.
	NoSync bool
	// Metrics allows observing read/write/commit latencies and sizes. Optional.
	Metrics db.MetricsHook
}

// Store implements db.Engine over a single bbolt file.
type Store struct {
	db      *bbolt.DB
	metrics db.MetricsHook

	mu     sync.RWMutex
	closed bool
}

// Open creates or opens a bolt database inside the directory at path.
func Open(path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create bolt directory %q: %w", path, err)
	}
	bdb, err := bbolt.Open(filepath.Join(path, fileName), 0o600, &bbolt.Options{
		Timeout: time.Second,
		NoSync:  opts.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt at %q: %w", path, err)
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = db.NoopMetrics{}
	}

	log.Engine.Debug().Str("path", path).Msg("opened bolt store")
	return &Store{db: bdb, metrics: metrics}, nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return db.ErrClosed
	}
	return nil
}

func bucketOf(tx *bbolt.Tx, partition string) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(partition))
	if b == nil {
		return nil, fmt.Errorf("%w: %q", db.ErrPartitionNotFound, partition)
	}
	return b, nil
}

func (s *Store) Get(partition string, key []byte) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucketOf(tx, partition)
		if err != nil {
			return err
		}
		// A cursor distinguishes a missing key from an empty value.
		k, v := b.Cursor().Seek(key)
		if k == nil || !bytes.Equal(k, key) {
			return db.ErrKeyNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveRead(time.Since(start), len(out))
	return out, nil
}

func (s *Store) Put(partition string, key, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucketOf(tx, partition)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
	if err != nil {
		return err
	}
	s.metrics.ObserveWrite(time.Since(start), len(key)+len(value))
	return nil
}

func (s *Store) Delete(partition string, key []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucketOf(tx, partition)
		if err != nil {
			return err
		}
		return b.Delete(key)
	})
}

func (s *Store) CreatePartition(name string) error {
	if name == "" {
		return fmt.Errorf("partition name must not be empty")
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
}

func (s *Store) HasPartition(name string) bool {
	if err := s.checkOpen(); err != nil {
		return false
	}
	found := false
	_ = s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte(name)) != nil
		return nil
	})
	return found
}

func (s *Store) Partitions() []string {
	var names []string
	_ = s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	sort.Strings(names)
	return names
}

func (s *Store) Checkpoint(dest string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory %q: %w", dest, err)
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(filepath.Join(dest, fileName))
		if err != nil {
			return fmt.Errorf("create checkpoint file: %w", err)
		}
		defer f.Close()
		if _, err := tx.WriteTo(f); err != nil {
			return fmt.Errorf("write checkpoint: %w", err)
		}
		return f.Sync()
	})
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
