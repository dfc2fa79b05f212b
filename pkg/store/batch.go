package store

import (
	"errors"
	"fmt"

	"github.com/stratumdb/stratum/pkg/db"
)

// Batch accumulates staged mutations across one or more typed maps that
// share a store handle, and commits them atomically. A batch is staged by a
// single owner and consumed exactly once by Write.
//
// The staging functions are free functions because Go methods cannot
// introduce the per-map type parameters.
type Batch struct {
	store *Store
	inner db.Batch
}

// checkMap rejects maps bound to a different store handle. The check runs
// at stage time so a caller can never believe cross-store atomicity was
// achieved.
func checkMap[K, V any](b *Batch, m *Map[K, V]) error {
	if m.store.id != b.store.id {
		return fmt.Errorf("%w: batch store #%d, map %q store #%d",
			ErrCrossStoreBatch, b.store.id, m.partition, m.store.id)
	}
	return nil
}

// InsertBatch stages puts of all pairs into m's partition.
func InsertBatch[K, V any](b *Batch, m *Map[K, V], pairs []Pair[K, V]) error {
	if err := checkMap(b, m); err != nil {
		return err
	}
	for _, p := range pairs {
		kb, err := m.keys.EncodeKey(p.Key)
		if err != nil {
			return err
		}
		vb, err := m.values.EncodeValue(p.Value)
		if err != nil {
			return err
		}
		if err := b.inner.Put(m.partition, kb, vb); err != nil {
			return spentErr(err)
		}
	}
	return nil
}

// DeleteBatch stages deletions of all keys from m's partition.
func DeleteBatch[K, V any](b *Batch, m *Map[K, V], keys []K) error {
	if err := checkMap(b, m); err != nil {
		return err
	}
	for _, k := range keys {
		kb, err := m.keys.EncodeKey(k)
		if err != nil {
			return err
		}
		if err := b.inner.Delete(m.partition, kb); err != nil {
			return spentErr(err)
		}
	}
	return nil
}

// ScheduleDeleteRange stages deletion of every key in [start, end) from m's
// partition.
func ScheduleDeleteRange[K, V any](b *Batch, m *Map[K, V], start, end K) error {
	if err := checkMap(b, m); err != nil {
		return err
	}
	sb, err := m.keys.EncodeKey(start)
	if err != nil {
		return err
	}
	eb, err := m.keys.EncodeKey(end)
	if err != nil {
		return err
	}
	if err := b.inner.DeleteRange(m.partition, sb, eb); err != nil {
		return spentErr(err)
	}
	return nil
}

// Len reports the number of staged operations.
func (b *Batch) Len() int {
	return b.inner.Len()
}

// Write commits all staged operations atomically: either every staged
// mutation becomes visible, or none do. The batch is spent afterwards.
func (b *Batch) Write() error {
	if err := b.inner.Commit(); err != nil {
		return spentErr(err)
	}
	return nil
}

// Discard releases a batch without committing it. Safe to call after Write.
func (b *Batch) Discard() {
	_ = b.inner.Close()
}

func spentErr(err error) error {
	if errors.Is(err, db.ErrBatchDone) {
		return ErrBatchSpent
	}
	return err
}
