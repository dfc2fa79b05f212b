package db

import "errors"

var (
	ErrClosed            = errors.New("db: engine is closed")
	ErrKeyNotFound       = errors.New("db: key not found")
	ErrPartitionNotFound = errors.New("db: partition not found")
	ErrBatchDone         = errors.New("db: batch already committed or closed")
	ErrIteratorInvalid   = errors.New("db: iterator is not positioned on an entry")
)
