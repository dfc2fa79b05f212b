package bolt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratumdb/stratum/pkg/db"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.CreatePartition("test"))
	return store
}

func TestPutGetDelete(t *testing.T) {
	store := openTestStore(t)

	key := []byte("test-key")
	value := []byte("test-value")

	require.NoError(t, store.Put("test", key, value))

	retrieved, err := store.Get("test", key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	_, err = store.Get("test", []byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	require.NoError(t, store.Delete("test", key))
	_, err = store.Get("test", key)
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestEmptyValue(t *testing.T) {
	store := openTestStore(t)

	// An empty value must still read back as present.
	require.NoError(t, store.Put("test", []byte("k"), nil))
	val, err := store.Get("test", []byte("k"))
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestUnknownPartition(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get("missing", []byte("key"))
	assert.ErrorIs(t, err, db.ErrPartitionNotFound)

	_, err = store.NewIter("missing", db.IterOptions{})
	assert.ErrorIs(t, err, db.ErrPartitionNotFound)
}

func TestPartitionsSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, store.CreatePartition("alpha"))
	require.NoError(t, store.CreatePartition("beta"))
	require.NoError(t, store.Put("beta", []byte("k"), []byte("v")))
	require.NoError(t, store.Close())

	reopened, err := Open(dir, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, []string{"alpha", "beta"}, reopened.Partitions())

	val, err := reopened.Get("beta", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestBatchAtomicity(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.CreatePartition("other"))

	batch := store.NewBatch()
	defer batch.Close()
	require.NoError(t, batch.Put("test", []byte("a"), []byte("1")))
	require.NoError(t, batch.Put("other", []byte("b"), []byte("2")))
	require.NoError(t, batch.Delete("test", []byte("nope")))

	// Nothing visible before commit
	_, err := store.Get("test", []byte("a"))
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	require.NoError(t, batch.Commit())

	val, err := store.Get("test", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)
	val, err = store.Get("other", []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), val)

	// Spent batch rejects further use
	assert.ErrorIs(t, batch.Put("test", []byte("x"), []byte("y")), db.ErrBatchDone)
	assert.ErrorIs(t, batch.Commit(), db.ErrBatchDone)
}

func TestBatchDeleteRange(t *testing.T) {
	store := openTestStore(t)
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
	_, err = store.Get("test", []byte("d"))
	assert.NoError(t, err)
	_, err = store.Get("test", []byte("a"))
	assert.NoError(t, err)
}

func TestIterator(t *testing.T) {
	store := openTestStore(t)
	for _, k := range []string{"b", "d", "f"} {
		require.NoError(t, store.Put("test", []byte(k), []byte("value-"+k)))
	}

	iter, err := store.NewIter("test", db.IterOptions{
		LowerBound: []byte("b"),
		UpperBound: []byte("f"),
	})
	require.NoError(t, err)
	defer iter.Close()

	var keys []string
	for ok := iter.First(); ok; ok = iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	assert.Equal(t, []string{"b", "d"}, keys)

	// Reverse walk within the same bounds
	keys = nil
	for ok := iter.Last(); ok; ok = iter.Prev() {
		keys = append(keys, string(iter.Key()))
	}
	assert.Equal(t, []string{"d", "b"}, keys)

	assert.True(t, iter.SeekGE([]byte("c")))
	assert.Equal(t, []byte("d"), iter.Key())

	assert.True(t, iter.SeekLT([]byte("d")))
	assert.Equal(t, []byte("b"), iter.Key())

	assert.False(t, iter.SeekLT([]byte("b")))
	assert.False(t, iter.Valid())
}

func TestCheckpoint(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "db"), Options{})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.CreatePartition("test"))

	require.NoError(t, store.Put("test", []byte("before"), []byte("1")))
	require.NoError(t, store.Checkpoint(filepath.Join(dir, "copy")))
	require.NoError(t, store.Put("test", []byte("after"), []byte("2")))

	_, err = os.Stat(filepath.Join(dir, "copy", fileName))
	require.NoError(t, err)

	copied, err := Open(filepath.Join(dir, "copy"), Options{})
	require.NoError(t, err)
	defer copied.Close()

	val, err := copied.Get("test", []byte("before"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	_, err = copied.Get("test", []byte("after"))
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}
