package store

import (
	"errors"
	"fmt"

	"github.com/stratumdb/stratum/pkg/db"
)

var (
	// ErrIteratorNotInitialized is returned by positional accessors of an
	// iterator that has never been positioned.
	ErrIteratorNotInitialized = errors.New("store: iterator not initialized")
	// ErrCrossStoreBatch is returned when a batch staging call targets a
	// map bound to a different store handle.
	ErrCrossStoreBatch = errors.New("store: batch and map belong to different stores")
	// ErrBatchSpent is returned when a batch is used after Write.
	ErrBatchSpent = errors.New("store: batch already written")
	// ErrStoreClosed is returned by operations on a closed store handle.
	ErrStoreClosed = errors.New("store: store is closed")

	// ErrPartitionNotFound is returned when a map is opened over a logical
	// partition that was never created.
	ErrPartitionNotFound = db.ErrPartitionNotFound
)

// DecodeError reports that bytes retrieved from the engine do not parse as
// the expected type. It is reported per entry and never causes silent data
// loss.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("store: decoding %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(typ string, err error) error {
	return &DecodeError{Type: typ, Err: err}
}
