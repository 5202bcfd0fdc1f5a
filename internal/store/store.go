// Package store defines the key-value port the ledger and its archives are
// persisted through, plus JSON helpers shared by every backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Ports for the persistence adapters.
type (
	// Store is a flat key-value namespace with ordered prefix scans.
	Store interface {
		// Get returns the value under key and whether it exists.
		Get(ctx context.Context, key string) ([]byte, bool, error)
		// Set creates or overwrites key.
		Set(ctx context.Context, key string, value []byte) error
		// Delete removes key. Deleting a missing key is not an error.
		Delete(ctx context.Context, key string) error
		// ListKeysWithPrefix returns every key starting with prefix, sorted
		// ascending.
		ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
	}

	// Pinger is implemented by backends that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

var (
	ErrRead  = errors.New("store read failed")
	ErrWrite = errors.New("store write failed")
)

// OpError describes a failed store operation. It matches both its kind
// (ErrRead or ErrWrite) and the underlying cause with errors.Is.
type OpError struct {
	Op   string
	Key  string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %q: %v: %v", e.Op, e.Key, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ReadError wraps a failed read of key.
func ReadError(op, key string, err error) error {
	return &OpError{Op: op, Key: key, Kind: ErrRead, Err: err}
}

// WriteError wraps a failed write of key.
func WriteError(op, key string, err error) error {
	return &OpError{Op: op, Key: key, Kind: ErrWrite, Err: err}
}

// GetJSON decodes the value under key into a T.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var v T
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, ReadError("decode", key, err)
	}
	return v, true, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return WriteError("encode", key, err)
	}
	return s.Set(ctx, key, raw)
}
