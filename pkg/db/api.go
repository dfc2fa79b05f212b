package db

// Engine represents a persistent key-value engine exposing one or more named
// logical partitions. Implementations must support concurrent readers and
// writers; this interface adds no locking of its own.
type Engine interface {
	// Get returns a copy of the value stored under key in the given
	// partition, or ErrKeyNotFound.
	Get(partition string, key []byte) ([]byte, error)
	Put(partition string, key, value []byte) error
	Delete(partition string, key []byte) error
	// NewBatch creates an empty batch of operations that commit atomically.
	NewBatch() Batch
	// NewIter creates a cursor over the partition restricted to
	// [opts.LowerBound, opts.UpperBound). Cursors must be closed after use.
	NewIter(partition string, opts IterOptions) (Iterator, error)
	// Checkpoint produces a consistent point-in-time copy of every
	// partition at dest. Writes made before the call are visible in the
	// copy, writes made after are not.
	Checkpoint(dest string) error
	CreatePartition(name string) error
	HasPartition(name string) bool
	Partitions() []string
	Close() error
}

// Batch represents an atomic batch of operations spanning any number of
// partitions of one engine. A batch is single-shot: after Commit or Close it
// rejects further use with ErrBatchDone.
type Batch interface {
	Put(partition string, key, value []byte) error
	Delete(partition string, key []byte) error
	// DeleteRange stages deletion of every key in [start, end).
	DeleteRange(partition string, start, end []byte) error
	// Len reports the number of staged operations.
	Len() int
	Commit() error
	Close() error
}

// IterOptions bounds a cursor to [LowerBound, UpperBound). A nil bound means
// unbounded in that direction.
type IterOptions struct {
	LowerBound []byte
	UpperBound []byte
}

// Iterator is a raw cursor over a partition's key range. Positioning calls
// return whether the cursor landed on an entry within bounds. Key and Value
// are only meaningful while Valid reports true.
type Iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	// SeekGE positions at the first entry with key >= target.
	SeekGE(key []byte) bool
	// SeekLT positions at the last entry with key < target.
	SeekLT(key []byte) bool
	Valid() bool
	Key() []byte
	Value() ([]byte, error)
	// Err reports a cursor-level failure encountered during positioning.
	Err() error
	Close() error
}
