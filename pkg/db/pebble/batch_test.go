package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratumdb/stratum/pkg/db"
)

func TestBatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store *Store)
	}{
		{
			name: "basic_batch_operations",
			fn:   testBasicBatchOperations,
		},
		{
			name: "batch_commit_closure",
			fn:   testBatchCommitAndClose,
		},
		{
			name: "cross_partition_batch",
			fn:   testCrossPartitionBatch,
		},
		{
			name: "delete_range",
			fn:   testBatchDeleteRange,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, openTestStore(t))
		})
	}
}

func testBasicBatchOperations(t *testing.T, store *Store) {
	batch := store.NewBatch()
	defer batch.Close()

	keys := [][]byte{[]byte("key1"), []byte("key2"), []byte("key3")}
	values := [][]byte{[]byte("value1"), []byte("value2"), []byte("value3")}

	for i := range keys {
		err := batch.Put("test", keys[i], values[i])
		require.NoError(t, err)
	}

	// Delete one key in the same batch
	err := batch.Delete("test", keys[1])
	require.NoError(t, err)

	assert.Equal(t, 4, batch.Len())

	// Nothing visible before commit
	_, err = store.Get("test", keys[0])
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	err = batch.Commit()
	require.NoError(t, err)

	val1, err := store.Get("test", keys[0])
	require.NoError(t, err)
	assert.Equal(t, values[0], val1)

	// Verify deleted key
	_, err = store.Get("test", keys[1])
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	val3, err := store.Get("test", keys[2])
	require.NoError(t, err)
	assert.Equal(t, values[2], val3)
}

func testBatchCommitAndClose(t *testing.T, store *Store) {
	batch := store.NewBatch()

	err := batch.Put("test", []byte("key"), []byte("value"))
	require.NoError(t, err)

	err = batch.Commit()
	require.NoError(t, err)

	// Operations after commit should fail
	err = batch.Put("test", []byte("key2"), []byte("value2"))
	assert.ErrorIs(t, err, db.ErrBatchDone)

	err = batch.Delete("test", []byte("key2"))
	assert.ErrorIs(t, err, db.ErrBatchDone)

	// Second commit should fail
	err = batch.Commit()
	assert.ErrorIs(t, err, db.ErrBatchDone)

	// Close should not error
	err = batch.Close()
	assert.NoError(t, err)

	// Double close should not error
	err = batch.Close()
	assert.NoError(t, err)
}

func testCrossPartitionBatch(t *testing.T, store *Store) {
	require.NoError(t, store.CreatePartition("other"))

	batch := store.NewBatch()
	defer batch.Close()

	require.NoError(t, batch.Put("test", []byte("a"), []byte("1")))
	require.NoError(t, batch.Put("other", []byte("b"), []byte("2")))
	require.NoError(t, batch.Commit())

	val, err := store.Get("test", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	val, err = store.Get("other", []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), val)
}

func testBatchDeleteRange(t *testing.T, store *Store) {
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Put("test", []byte(k), []byte(k)))
	}

	batch := store.NewBatch()
	defer batch.Close()
	require.NoError(t, batch.DeleteRange("test", []byte("b"), []byte("d")))
	require.NoError(t, batch.Commit())

	_, err := store.Get("test", []byte("b"))
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
	_, err = store.Get("test", []byte("c"))
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	// Range end is exclusive
	val, err := store.Get("test", []byte("d"))
	require.NoError(t, err)
	assert.Equal(t, []byte("d"), val)

	val, err = store.Get("test", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), val)

	// nil bounds clear the whole partition without touching others
	require.NoError(t, store.CreatePartition("other"))
	require.NoError(t, store.Put("other", []byte("x"), []byte("y")))

	clear := store.NewBatch()
	defer clear.Close()
	require.NoError(t, clear.DeleteRange("test", nil, nil))
	require.NoError(t, clear.Commit())

	_, err = store.Get("test", []byte("a"))
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
	_, err = store.Get("other", []byte("x"))
	assert.NoError(t, err)
}
