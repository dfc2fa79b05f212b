package pebble

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/stratumdb/stratum/pkg/db"
)

// Batch wraps a pebble batch. Staged keys are mangled with their partition
// prefix at stage time so the commit is a single atomic pebble write.
type Batch struct {
	store *Store
	batch *pebble.Batch
	ops   int
	done  atomic.Bool
}

func (s *Store) NewBatch() db.Batch {
	return &Batch{
		store: s,
		batch: s.db.NewBatch(),
	}
}

func (b *Batch) Put(partition string, key, value []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	prefix, err := b.store.prefixOf(partition)
	if err != nil {
		return err
	}
	if err := b.batch.Set(mangle(prefix, key), value, nil); err != nil {
		return err
	}
	b.ops++
	return nil
}

func (b *Batch) Delete(partition string, key []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	prefix, err := b.store.prefixOf(partition)
	if err != nil {
		return err
	}
	if err := b.batch.Delete(mangle(prefix, key), nil); err != nil {
		return err
	}
	b.ops++
	return nil
}

func (b *Batch) DeleteRange(partition string, start, end []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	prefix, err := b.store.prefixOf(partition)
	if err != nil {
		return err
	}
	// nil bounds cover the whole partition keyspace.
	lower := []byte{prefix}
	if start != nil {
		lower = mangle(prefix, start)
	}
	upper := []byte{prefix + 1}
	if end != nil {
		upper = mangle(prefix, end)
	}
	if err := b.batch.DeleteRange(lower, upper, nil); err != nil {
		return err
	}
	b.ops++
	return nil
}

func (b *Batch) Len() int {
	return b.ops
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	start := time.Now()
	size := b.batch.Len()
	if err := b.batch.Commit(b.store.writeOpts); err != nil {
		return err
	}
	b.done.Store(true)
	b.store.metrics.ObserveBatchCommit(time.Since(start), b.ops, size)
	return nil
}

func (b *Batch) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	return b.batch.Close()
}
