// Package storage provides interfaces for types to be in compliance with.
package storage

import (
	"context"
)

// RecordAdder defines a set of methods for types implementing RecordAdder.
// Add is create-only and fails with AlreadyExistsError when the key is occupied,
// which makes it usable as a code collision probe.
type RecordAdder interface {
	Add(ctx context.Context, key string, value string) error
}

// RecordSetter defines a set of methods for types implementing RecordSetter.
// Set is a blind upsert, last write wins.
type RecordSetter interface {
	Set(ctx context.Context, key string, value string) error
}

// RecordGetter defines a set of methods for types implementing RecordGetter.
type RecordGetter interface {
	Get(ctx context.Context, key string) (value string, err error)
}

// RecordLister defines a set of methods for types implementing RecordLister.
type RecordLister interface {
	ListByPrefix(ctx context.Context, prefix string) (records map[string]string, err error)
}

// RecordRemover defines a set of methods for types implementing RecordRemover.
type RecordRemover interface {
	Remove(ctx context.Context, key string) error
}

// Pinger defines a set of methods for types implementing Pinger.
type Pinger interface {
	Ping() error
}

// Closer defines a set of methods for types implementing Closer.
type Closer interface {
	Close() error
}

// KVStorage defines a set of embedded interfaces for types implementing KVStorage.
type KVStorage interface {
	RecordAdder
	RecordSetter
	RecordGetter
	RecordLister
	RecordRemover
	Pinger
	Closer
}
