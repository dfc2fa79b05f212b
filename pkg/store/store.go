// Package store provides a typed, ordered key-value layer over an
// embeddable engine with named logical partitions. Typed maps share one
// store handle, mutations can be staged into atomic write batches across
// partitions, and range scans go through bounded, seekable safe iterators.
package store

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/stratumdb/stratum/pkg/db"
	"github.com/stratumdb/stratum/pkg/db/bolt"
	"github.com/stratumdb/stratum/pkg/db/pebble"
	"github.com/stratumdb/stratum/pkg/log"
	"github.com/stratumdb/stratum/pkg/sampling"
)

// EngineKind selects the persistent engine backing a store.
type EngineKind string

const (
	EnginePebble EngineKind = "pebble"
	EngineBolt   EngineKind = "bolt"
)

// Options configures a store handle.
type Options struct {
	// Engine selects the backing engine. Defaults to pebble.
	Engine EngineKind
	// NoSync disables fsync on writes and commits.
	NoSync bool
	// CacheSize is the pebble block cache size in bytes.
	CacheSize int64
	// MemTableSize is the pebble memtable size in bytes.
	MemTableSize uint64
	// Metrics allows observing engine read/write/commit latencies. Optional.
	Metrics db.MetricsHook
}

// Store owns one engine instance and its logical partitions. It is shared
// by every typed map derived from it; close it once, when no map needs it
// anymore. Operations on a closed store return ErrStoreClosed.
type Store struct {
	engine db.Engine
	id     uint64
	closed atomic.Bool
}

var storeIDs atomic.Uint64

// Open creates or reopens a store at path. Partitions named here are
// created if missing; partitions that already exist on disk are kept as-is.
func Open(path string, opts Options, partitions ...string) (*Store, error) {
	stats := newCommitStats(opts.Metrics)

	var (
		engine db.Engine
		err    error
	)
	switch opts.Engine {
	case EngineBolt:
		engine, err = bolt.Open(path, bolt.Options{
			NoSync:  opts.NoSync,
			Metrics: stats,
		})
	case EnginePebble, "":
		engine, err = pebble.Open(path, pebble.Options{
			CacheSize:    opts.CacheSize,
			MemTableSize: opts.MemTableSize,
			NoSync:       opts.NoSync,
			Metrics:      stats,
		})
	default:
		return nil, fmt.Errorf("unknown engine kind %q", opts.Engine)
	}
	if err != nil {
		return nil, err
	}

	for _, name := range partitions {
		if err := engine.CreatePartition(name); err != nil {
			_ = engine.Close()
			return nil, fmt.Errorf("create partition %q: %w", name, err)
		}
	}

	s := &Store{
		engine: engine,
		id:     storeIDs.Add(1),
	}
	log.Store.Info().Str("path", path).Strs("partitions", engine.Partitions()).
		Msg("store opened")
	return s, nil
}

// Partitions lists the logical partitions of this store in name order.
func (s *Store) Partitions() []string {
	return s.engine.Partitions()
}

// HasPartition reports whether the named partition exists.
func (s *Store) HasPartition(name string) bool {
	return s.engine.HasPartition(name)
}

// Checkpoint produces a consistent point-in-time copy of every partition at
// dest. Writes made before the call are visible in the copy, writes made
// after are not.
func (s *Store) Checkpoint(dest string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	start := time.Now()
	if err := s.engine.Checkpoint(dest); err != nil {
		return err
	}
	log.Store.Info().Str("dest", dest).Dur("elapsed", time.Since(start)).
		Msg("checkpoint complete")
	return nil
}

// PartitionDigest computes a BLAKE2b-256 digest over the partition's
// length-framed key/value pairs in key order. Two partitions with equal
// contents produce equal digests, which makes checkpoints and replicas
// cheap to compare.
func (s *Store) PartitionDigest(name string) ([32]byte, error) {
	var digest [32]byte
	if s.closed.Load() {
		return digest, ErrStoreClosed
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return digest, err
	}
	iter, err := s.engine.NewIter(name, db.IterOptions{})
	if err != nil {
		return digest, err
	}
	defer iter.Close()

	var frame [4]byte
	for ok := iter.First(); ok; ok = iter.Next() {
		val, err := iter.Value()
		if err != nil {
			return digest, fmt.Errorf("digest partition %q: %w", name, err)
		}
		key := iter.Key()
		binary.BigEndian.PutUint32(frame[:], uint32(len(key)))
		h.Write(frame[:])
		h.Write(key)
		binary.BigEndian.PutUint32(frame[:], uint32(len(val)))
		h.Write(frame[:])
		h.Write(val)
	}
	if err := iter.Err(); err != nil {
		return digest, fmt.Errorf("digest partition %q: %w", name, err)
	}
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// Close closes the underlying engine. Safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.engine.Close()
}

// commitStats logs cumulative batch-commit statistics, gated by a sampling
// interval so the logging cost stays negligible on hot write paths.
type commitStats struct {
	next    db.MetricsHook
	sampler *sampling.SamplingInterval
	commits atomic.Uint64
	ops     atomic.Uint64
	bytes   atomic.Uint64
}

func newCommitStats(next db.MetricsHook) *commitStats {
	if next == nil {
		next = db.NoopMetrics{}
	}
	return &commitStats{
		next:    next,
		sampler: sampling.NewSamplingInterval(1000, 10*time.Second),
	}
}

func (c *commitStats) ObserveRead(elapsed time.Duration, bytes int) {
	c.next.ObserveRead(elapsed, bytes)
}

func (c *commitStats) ObserveWrite(elapsed time.Duration, bytes int) {
	c.next.ObserveWrite(elapsed, bytes)
}

func (c *commitStats) ObserveBatchCommit(elapsed time.Duration, numOps, bytes int) {
	c.commits.Add(1)
	c.ops.Add(uint64(numOps))
	c.bytes.Add(uint64(bytes))
	if c.sampler.Sample() {
		log.Engine.Debug().
			Uint64("commits", c.commits.Load()).
			Uint64("ops", c.ops.Load()).
			Uint64("bytes", c.bytes.Load()).
			Msg("batch commit stats")
	}
	c.next.ObserveBatchCommit(elapsed, numOps, bytes)
}
