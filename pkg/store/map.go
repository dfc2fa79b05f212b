package store

import (
	"errors"
	"fmt"

	"github.com/stratumdb/stratum/pkg/db"
)

// Map is a typed view over one (store, partition) pair. It holds no data of
// its own; all state lives in the engine. Every key written through a map
// was encoded by its key codec, and decode failures on read are reported,
// never silently coerced.
type Map[K, V any] struct {
	store     *Store
	partition string
	keys      KeyCodec[K]
	values    ValueCodec[V]
}

// Pair is a key/value pair for bulk operations.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// OpenMap binds a typed map to an existing partition of the store. The
// partition must have been created when the store was opened; a missing
// partition is a hard error, never auto-created.
func OpenMap[K, V any](s *Store, partition string, keys KeyCodec[K], values ValueCodec[V]) (*Map[K, V], error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if !s.engine.HasPartition(partition) {
		return nil, fmt.Errorf("%w: %q", ErrPartitionNotFound, partition)
	}
	return &Map[K, V]{
		store:     s,
		partition: partition,
		keys:      keys,
		values:    values,
	}, nil
}

// Partition returns the name of the partition this map is bound to.
func (m *Map[K, V]) Partition() string { return m.partition }

// Store returns the shared store handle this map is bound to.
func (m *Map[K, V]) Store() *Store { return m.store }

// Get returns the value stored under key. The second result is false when
// the key is absent; absence is not an error.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	var zero V
	kb, err := m.keys.EncodeKey(key)
	if err != nil {
		return zero, false, err
	}
	raw, err := m.store.engine.Get(m.partition, kb)
	if errors.Is(err, db.ErrKeyNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	v, err := m.values.DecodeValue(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Insert stores value under key. The write is immediately durable, not
// staged.
func (m *Map[K, V]) Insert(key K, value V) error {
	kb, err := m.keys.EncodeKey(key)
	if err != nil {
		return err
	}
	vb, err := m.values.EncodeValue(value)
	if err != nil {
		return err
	}
	return m.store.engine.Put(m.partition, kb, vb)
}

// Remove deletes key. Removing an absent key is not an error.
func (m *Map[K, V]) Remove(key K) error {
	kb, err := m.keys.EncodeKey(key)
	if err != nil {
		return err
	}
	return m.store.engine.Delete(m.partition, kb)
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) (bool, error) {
	kb, err := m.keys.EncodeKey(key)
	if err != nil {
		return false, err
	}
	_, err = m.store.engine.Get(m.partition, kb)
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MultiGet returns one result per key, in key order. Absent keys yield a
// nil entry at their position, never by omission.
func (m *Map[K, V]) MultiGet(keys []K) ([]*V, error) {
	out := make([]*V, len(keys))
	for i, key := range keys {
		v, ok, err := m.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = &v
		}
	}
	return out, nil
}

// MultiContainsKeys reports presence per key, positionally.
func (m *Map[K, V]) MultiContainsKeys(keys []K) ([]bool, error) {
	out := make([]bool, len(keys))
	for i, key := range keys {
		ok, err := m.ContainsKey(key)
		if err != nil {
			return nil, err
		}
		out[i] = ok
	}
	return out, nil
}

// MultiInsert stores all pairs atomically: either every pair becomes
// visible or none do.
func (m *Map[K, V]) MultiInsert(pairs []Pair[K, V]) error {
	batch := m.Batch()
	defer batch.Discard()
	if err := InsertBatch(batch, m, pairs); err != nil {
		return err
	}
	return batch.Write()
}

// MultiRemove deletes all keys atomically.
func (m *Map[K, V]) MultiRemove(keys []K) error {
	batch := m.Batch()
	defer batch.Discard()
	if err := DeleteBatch(batch, m, keys); err != nil {
		return err
	}
	return batch.Write()
}

// IsEmpty reports whether the partition has zero entries.
func (m *Map[K, V]) IsEmpty() (bool, error) {
	iter, err := m.store.engine.NewIter(m.partition, db.IterOptions{})
	if err != nil {
		return false, err
	}
	defer iter.Close()
	if iter.First() {
		return false, nil
	}
	return true, iter.Err()
}

// UnsafeClear removes every entry in the partition. It is idempotent and
// leaves the partition fully usable afterwards.
func (m *Map[K, V]) UnsafeClear() error {
	batch := m.store.engine.NewBatch()
	defer batch.Close()
	if err := batch.DeleteRange(m.partition, nil, nil); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("clear partition %q: %w", m.partition, err)
	}
	return nil
}

// Batch constructs an empty write batch bound to this map's store handle.
func (m *Map[K, V]) Batch() *Batch {
	return &Batch{
		store: m.store,
		inner: m.store.engine.NewBatch(),
	}
}

// SafeIter returns a forward iterator over the whole partition.
func (m *Map[K, V]) SafeIter() (*SafeIter[K, V], error) {
	return m.iter(nil, nil, forward)
}

// SafeIterWithBounds returns a forward iterator restricted to
// [lower, upper). A nil bound is unbounded in that direction.
func (m *Map[K, V]) SafeIterWithBounds(lower, upper *K) (*SafeIter[K, V], error) {
	lb, ub, err := m.encodeBounds(lower, upper)
	if err != nil {
		return nil, err
	}
	return m.iter(lb, ub, forward)
}

// SafeRangeIter returns a forward iterator over the given range. Any
// combination of inclusive, exclusive and open ends is accepted.
func (m *Map[K, V]) SafeRangeIter(r Range[K]) (*SafeIter[K, V], error) {
	lb, ub, err := normalizeRange(r, m.keys)
	if err != nil {
		return nil, err
	}
	return m.iter(lb, ub, forward)
}

// ReversedSafeIterWithBounds returns a reverse iterator restricted to
// [lower, upper). A nil bound is unbounded in that direction.
func (m *Map[K, V]) ReversedSafeIterWithBounds(lower, upper *K) (*SafeIter[K, V], error) {
	lb, ub, err := m.encodeBounds(lower, upper)
	if err != nil {
		return nil, err
	}
	return m.iter(lb, ub, reverse)
}

func (m *Map[K, V]) encodeBounds(lower, upper *K) (lb, ub []byte, err error) {
	if lower != nil {
		lb, err = m.keys.EncodeKey(*lower)
		if err != nil {
			return nil, nil, err
		}
	}
	if upper != nil {
		ub, err = m.keys.EncodeKey(*upper)
		if err != nil {
			return nil, nil, err
		}
	}
	return lb, ub, nil
}

func (m *Map[K, V]) iter(lower, upper []byte, dir direction) (*SafeIter[K, V], error) {
	raw, err := m.store.engine.NewIter(m.partition, db.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, err
	}
	return &SafeIter[K, V]{
		iter:   raw,
		keys:   m.keys,
		values: m.values,
		dir:    dir,
	}, nil
}
