// Package durable persists pending batches so they survive a restart.
//
// A Store is a flat key-value space. BatchedSink writes its pending batch
// under "<namespace>-<epoch-ms>" keys and, on startup, replays every key
// with its namespace prefix. A namespace is expected to have one owner at a
// time; FileStore enforces that with a lock file, the other stores do not.
package durable

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/willibrandon/stlog/core"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("durable: key not found")

// Store is a key-value store for serialized batches.
type Store interface {
	// Keys lists the keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty storage key", core.ErrInvalidArgument)
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: storage key %q contains a path separator", core.ErrInvalidArgument, key)
	}
	return nil
}
