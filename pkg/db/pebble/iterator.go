package pebble

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/stratumdb/stratum/pkg/db"
)

// Iterator is a cursor over one partition. The partition prefix is stripped
// from keys before they are returned.
type Iterator struct {
	iter   *pebble.Iterator
	prefix byte
}

func (s *Store) NewIter(partition string, opts db.IterOptions) (db.Iterator, error) {
	prefix, err := s.prefixOf(partition)
	if err != nil {
		return nil, err
	}

	lower := []byte{prefix}
	if opts.LowerBound != nil {
		lower = mangle(prefix, opts.LowerBound)
	}
	upper := []byte{prefix + 1}
	if opts.UpperBound != nil {
		upper = mangle(prefix, opts.UpperBound)
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	return &Iterator{iter: iter, prefix: prefix}, nil
}

func (it *Iterator) First() bool { return it.iter.First() }
func (it *Iterator) Last() bool  { return it.iter.Last() }
func (it *Iterator) Next() bool  { return it.iter.Next() }
func (it *Iterator) Prev() bool  { return it.iter.Prev() }

func (it *Iterator) SeekGE(key []byte) bool {
	return it.iter.SeekGE(mangle(it.prefix, key))
}

func (it *Iterator) SeekLT(key []byte) bool {
	return it.iter.SeekLT(mangle(it.prefix, key))
}

func (it *Iterator) Valid() bool { return it.iter.Valid() }

func (it *Iterator) Key() []byte {
	key := it.iter.Key()
	if len(key) < 1 {
		return nil
	}
	result := make([]byte, len(key)-1)
	copy(result, key[1:])
	return result
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.iter.Valid() {
		return nil, db.ErrIteratorInvalid
	}
	val, err := it.iter.ValueAndErr()
	if err != nil {
		return nil, fmt.Errorf("read iterator value: %w", err)
	}
	result := make([]byte, len(val))
	copy(result, val)
	return result, nil
}

func (it *Iterator) Err() error {
	return it.iter.Error()
}

func (it *Iterator) Close() error {
	return it.iter.Close()
}
