package bolt

import (
	"bytes"
	"sync/atomic"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/stratumdb/stratum/pkg/db"
)

type opKind uint8

const (
	opPut opKind = iota
	opDelete
	opDeleteRange
)

type stagedOp struct {
	kind      opKind
	partition string
	key       []byte
	value     []byte
	end       []byte
}

// Batch stages operations in memory and applies them inside one bbolt
// update transaction on commit.
type Batch struct {
	store *Store
	ops   []stagedOp
	size  int
	done  atomic.Bool
}

func (s *Store) NewBatch() db.Batch {
	return &Batch{store: s}
}

func (b *Batch) stage(op stagedOp) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	if !b.store.HasPartition(op.partition) {
		if err := b.store.checkOpen(); err != nil {
			return err
		}
		return db.ErrPartitionNotFound
	}
	b.ops = append(b.ops, op)
	b.size += len(op.key) + len(op.value) + len(op.end)
	return nil
}

func (b *Batch) Put(partition string, key, value []byte) error {
	return b.stage(stagedOp{
		kind:      opPut,
		partition: partition,
		key:       append([]byte(nil), key...),
		value:     append([]byte(nil), value...),
	})
}

func (b *Batch) Delete(partition string, key []byte) error {
	return b.stage(stagedOp{
		kind:      opDelete,
		partition: partition,
		key:       append([]byte(nil), key...),
	})
}

func (b *Batch) DeleteRange(partition string, start, end []byte) error {
	op := stagedOp{kind: opDeleteRange, partition: partition}
	if start != nil {
		op.key = append([]byte(nil), start...)
	}
	if end != nil {
		op.end = append([]byte(nil), end...)
	}
	return b.stage(op)
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	if err := b.store.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	err := b.store.db.Update(func(tx *bbolt.Tx) error {
		for _, op := range b.ops {
			bucket, err := bucketOf(tx, op.partition)
			if err != nil {
				return err
			}
			switch op.kind {
			case opPut:
				if err := bucket.Put(op.key, op.value); err != nil {
					return err
				}
			case opDelete:
				if err := bucket.Delete(op.key); err != nil {
					return err
				}
			case opDeleteRange:
				if err := deleteRange(bucket, op.key, op.end); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.done.Store(true)
	b.store.metrics.ObserveBatchCommit(time.Since(start), len(b.ops), b.size)
	return nil
}

// deleteRange removes every key in [start, end) from the bucket. A nil bound
// is unbounded in that direction.
func deleteRange(bucket *bbolt.Bucket, start, end []byte) error {
	c := bucket.Cursor()
	var doomed [][]byte
	k, _ := c.First()
	if start != nil {
		k, _ = c.Seek(start)
	}
	for ; k != nil; k, _ = c.Next() {
		if end != nil && bytes.Compare(k, end) >= 0 {
			break
		}
		doomed = append(doomed, append([]byte(nil), k...))
	}
	for _, k := range doomed {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (b *Batch) Close() error {
	b.done.Store(true)
	b.ops = nil
	return nil
}
