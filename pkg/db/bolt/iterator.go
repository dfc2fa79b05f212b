package bolt

import (
	"bytes"
	"fmt"

	bbolt "go.etcd.io/bbolt"

	"github.com/stratumdb/stratum/pkg/db"
)

// Iterator is a cursor over one bucket, bounded to [lower, upper). It holds
// a read transaction open for its lifetime; Close releases it.
type Iterator struct {
	tx     *bbolt.Tx
	cursor *bbolt.Cursor
	lower  []byte
	upper  []byte

	key   []byte
	value []byte
	valid bool
}

func (s *Store) NewIter(partition string, opts db.IterOptions) (db.Iterator, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("begin read transaction: %w", err)
	}
	bucket, err := bucketOf(tx, partition)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return &Iterator{
		tx:     tx,
		cursor: bucket.Cursor(),
		lower:  opts.LowerBound,
		upper:  opts.UpperBound,
	}, nil
}

// settle records the cursor position if it falls within bounds.
func (it *Iterator) settle(k, v []byte) bool {
	if k == nil ||
		(it.lower != nil && bytes.Compare(k, it.lower) < 0) ||
		(it.upper != nil && bytes.Compare(k, it.upper) >= 0) {
		it.key, it.value, it.valid = nil, nil, false
		return false
	}
	it.key = append([]byte(nil), k...)
	it.value = append([]byte(nil), v...)
	it.valid = true
	return true
}

func (it *Iterator) First() bool {
	if it.lower != nil {
		return it.settle(it.cursor.Seek(it.lower))
	}
	return it.settle(it.cursor.First())
}

func (it *Iterator) Last() bool {
	if it.upper != nil {
		k, _ := it.cursor.Seek(it.upper)
		if k == nil {
			return it.settle(it.cursor.Last())
		}
		return it.settle(it.cursor.Prev())
	}
	return it.settle(it.cursor.Last())
}

func (it *Iterator) Next() bool {
	if !it.valid {
		return false
	}
	return it.settle(it.cursor.Next())
}

func (it *Iterator) Prev() bool {
	if !it.valid {
		return false
	}
	return it.settle(it.cursor.Prev())
}

func (it *Iterator) SeekGE(key []byte) bool {
	if it.lower != nil && bytes.Compare(key, it.lower) < 0 {
		key = it.lower
	}
	return it.settle(it.cursor.Seek(key))
}

func (it *Iterator) SeekLT(key []byte) bool {
	if it.upper != nil && bytes.Compare(key, it.upper) > 0 {
		key = it.upper
	}
	k, _ := it.cursor.Seek(key)
	if k == nil {
		return it.settle(it.cursor.Last())
	}
	return it.settle(it.cursor.Prev())
}

func (it *Iterator) Valid() bool { return it.valid }

func (it *Iterator) Key() []byte {
	if !it.valid {
		return nil
	}
	return it.key
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.valid {
		return nil, db.ErrIteratorInvalid
	}
	return it.value, nil
}

func (it *Iterator) Err() error { return nil }

func (it *Iterator) Close() error {
	it.valid = false
	it.cursor = nil
	if it.tx == nil {
		return nil
	}
	tx := it.tx
	it.tx = nil
	return tx.Rollback()
}
