package storage

import "errors"

// ErrPersistence wraps any failure to read or write the durable store.
// Callers use errors.Is to distinguish persistence faults from domain errors.
var ErrPersistence = errors.New("persistence failure")

// KV is the durable key-value port the history store persists through.
// Get reports ok=false when the key has never been written; that is a valid
// initial condition, not an error.
type KV interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
}
