package store

import (
	"github.com/stratumdb/stratum/pkg/db"
)

type direction uint8

const (
	forward direction = iota
	reverse
)

// SafeIter is a bounded, seekable cursor over a typed map's partition.
//
// A fresh iterator is uninitialized: positional accessors return
// ErrIteratorNotInitialized until a positioning call (Next, Seek,
// SeekToFirst, ...) has run. Once the iterator runs past its bounds it is
// exhausted: accessors then report no entry, not an error. Decode failures
// are reported per entry; the caller decides whether one bad entry is
// fatal. Iterators must be closed after use; Close releases the underlying
// engine cursor on every path.
type SafeIter[K, V any] struct {
	iter        db.Iterator
	keys        KeyCodec[K]
	values      ValueCodec[V]
	dir         direction
	initialized bool
}

// Next positions the iterator on the first entry (forward) or last entry
// (reverse) when called on a fresh iterator, and advances it afterwards. It
// reports false once the iterator is exhausted, and keeps reporting false.
func (it *SafeIter[K, V]) Next() bool {
	if !it.initialized {
		it.initialized = true
		if it.dir == reverse {
			return it.iter.Last()
		}
		return it.iter.First()
	}
	if !it.iter.Valid() {
		return false
	}
	if it.dir == reverse {
		return it.iter.Prev()
	}
	return it.iter.Next()
}

// Key returns the current key. The second result is false when the
// iterator is exhausted.
func (it *SafeIter[K, V]) Key() (K, bool, error) {
	var zero K
	if !it.initialized {
		return zero, false, ErrIteratorNotInitialized
	}
	if !it.iter.Valid() {
		return zero, false, nil
	}
	k, err := it.keys.DecodeKey(it.iter.Key())
	if err != nil {
		return zero, false, err
	}
	return k, true, nil
}

// Value returns the current value. The second result is false when the
// iterator is exhausted.
func (it *SafeIter[K, V]) Value() (V, bool, error) {
	var zero V
	if !it.initialized {
		return zero, false, ErrIteratorNotInitialized
	}
	if !it.iter.Valid() {
		return zero, false, nil
	}
	raw, err := it.iter.Value()
	if err != nil {
		return zero, false, err
	}
	v, err := it.values.DecodeValue(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Seek positions the iterator at the first entry with key >= k within
// bounds. If no such entry exists the iterator becomes exhausted.
func (it *SafeIter[K, V]) Seek(k K) error {
	kb, err := it.keys.EncodeKey(k)
	if err != nil {
		return err
	}
	it.initialized = true
	it.iter.SeekGE(kb)
	return it.iter.Err()
}

// SeekToPrev positions the iterator at the last entry with key <= k within
// bounds. If no such entry exists the iterator becomes exhausted.
func (it *SafeIter[K, V]) SeekToPrev(k K) error {
	kb, err := it.keys.EncodeKey(k)
	if err != nil {
		return err
	}
	it.initialized = true
	// SeekLT against the immediate successor lands on the last key <= k.
	it.iter.SeekLT(successor(kb))
	return it.iter.Err()
}

// SeekToFirst positions the iterator at the first entry within bounds.
func (it *SafeIter[K, V]) SeekToFirst() error {
	it.initialized = true
	it.iter.First()
	return it.iter.Err()
}

// SeekToLast positions the iterator at the last entry within bounds.
func (it *SafeIter[K, V]) SeekToLast() error {
	it.initialized = true
	it.iter.Last()
	return it.iter.Err()
}

// Err reports a cursor-level failure encountered while positioning.
func (it *SafeIter[K, V]) Err() error {
	return it.iter.Err()
}

// Close releases the underlying engine cursor. Safe to call more than once.
func (it *SafeIter[K, V]) Close() error {
	return it.iter.Close()
}
