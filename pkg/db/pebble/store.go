// Package pebble implements the db.Engine interface on top of
// github.com/cockroachdb/pebble.
//
// Pebble has no native column families, so logical partitions are realized
// as single-byte key prefixes. Prefix 0x00 is reserved for the partition
// registry (name -> prefix byte) so that an existing layout is recovered on
// reopen. Prefix 0xFF is reserved so that every partition has a one-byte
// exclusive upper bound.
package pebble

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/stratumdb/stratum/pkg/db"
	"github.com/stratumdb/stratum/pkg/log"
)

const (
	registryPrefix byte = 0x00
	firstPrefix    byte = 0x01
	lastPrefix     byte = 0xFE
)

// Options configures the pebble engine.
type Options struct {
	// CacheSize is the block cache size in bytes. Defaults to 64MB.
	CacheSize int64
	// MemTableSize is the memtable size in bytes. Defaults to 32MB.
	MemTableSize uint64
	// NoSync disables WAL fsync on writes and batch commits. This trades
	// durability for throughput and should be used with care.
	NoSync bool
	// Metrics allows observing read/write/commit latencies and sizes. Optional.
	Metrics db.MetricsHook
}

// Store implements db.Engine over a single pebble instance.
type Store struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	metrics   db.MetricsHook

	mu         sync.RWMutex
	partitions map[string]byte
	nextPrefix byte
	closed     bool
}

// Open creates or opens a pebble database at path and loads its partition
// registry.
func Open(path string, opts Options) (*Store, error) {
	if opts.CacheSize == 0 {
		opts.CacheSize = 64 * 1024 * 1024
	}
	if opts.MemTableSize == 0 {
		opts.MemTableSize = 32 * 1024 * 1024
	}
	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	pdb, err := pebble.Open(path, &pebble.Options{
		Cache:        cache,
		MemTableSize: opts.MemTableSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %q: %w", path, err)
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = db.NoopMetrics{}
	}

	s := &Store{
		db:         pdb,
		writeOpts:  pebble.Sync,
		metrics:    metrics,
		partitions: make(map[string]byte),
		nextPrefix: firstPrefix,
	}
	if opts.NoSync {
		s.writeOpts = pebble.NoSync
	}

	if err := s.loadRegistry(); err != nil {
		_ = pdb.Close()
		return nil, err
	}

	log.Engine.Debug().Str("path", path).Int("partitions", len(s.partitions)).
		Msg("opened pebble store")
	return s, nil
}

// loadRegistry reads the persisted name -> prefix assignments.
func (s *Store) loadRegistry() error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{registryPrefix},
		UpperBound: []byte{registryPrefix + 1},
	})
	if err != nil {
		return fmt.Errorf("load partition registry: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		name := string(iter.Key()[1:])
		val, err := iter.ValueAndErr()
		if err != nil {
			return fmt.Errorf("read partition registry entry %q: %w", name, err)
		}
		if len(val) != 1 {
			return fmt.Errorf("partition registry entry %q is malformed", name)
		}
		s.partitions[name] = val[0]
		if val[0] >= s.nextPrefix {
			s.nextPrefix = val[0] + 1
		}
	}
	return iter.Error()
}

func (s *Store) prefixOf(partition string) (byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, db.ErrClosed
	}
	p, ok := s.partitions[partition]
	if !ok {
		return 0, fmt.Errorf("%w: %q", db.ErrPartitionNotFound, partition)
	}
	return p, nil
}

// mangle prepends the partition prefix to key.
func mangle(prefix byte, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = prefix
	copy(out[1:], key)
	return out
}

func (s *Store) Get(partition string, key []byte) ([]byte, error) {
	prefix, err := s.prefixOf(partition)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	value, closer, err := s.db.Get(mangle(prefix, key))
	if err == pebble.ErrNotFound {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	s.metrics.ObserveRead(time.Since(start), len(result))
	return result, nil
}

func (s *Store) Put(partition string, key, value []byte) error {
	prefix, err := s.prefixOf(partition)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := s.db.Set(mangle(prefix, key), value, s.writeOpts); err != nil {
		return err
	}
	s.metrics.ObserveWrite(time.Since(start), len(key)+len(value))
	return nil
}

func (s *Store) Delete(partition string, key []byte) error {
	prefix, err := s.prefixOf(partition)
	if err != nil {
		return err
	}
	return s.db.Delete(mangle(prefix, key), s.writeOpts)
}

func (s *Store) CreatePartition(name string) error {
	if name == "" {
		return fmt.Errorf("partition name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return db.ErrClosed
	}
	if _, ok := s.partitions[name]; ok {
		return nil
	}
	if s.nextPrefix > lastPrefix {
		return fmt.Errorf("create partition %q: prefix space exhausted", name)
	}
	prefix := s.nextPrefix
	key := mangle(registryPrefix, []byte(name))
	if err := s.db.Set(key, []byte{prefix}, pebble.Sync); err != nil {
		return fmt.Errorf("persist partition %q: %w", name, err)
	}
	s.partitions[name] = prefix
	s.nextPrefix++
	return nil
}

func (s *Store) HasPartition(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.partitions[name]
	return ok
}

func (s *Store) Partitions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.partitions))
	for name := range s.partitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Checkpoint(dest string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return db.ErrClosed
	}
	if err := s.db.Checkpoint(dest); err != nil {
		return fmt.Errorf("checkpoint to %q: %w", dest, err)
	}
	return nil
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
