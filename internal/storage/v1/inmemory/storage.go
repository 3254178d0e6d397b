// Package inmemory provides functionality for storing string records in a
// mutex-guarded map, mimicking the always-available local storage substrate.
package inmemory

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	storage "github.com/vmartynov/vm_go_code_drop/internal/storage/v1"
	storageErrors "github.com/vmartynov/vm_go_code_drop/internal/storage/v1/errors"
)

// Check interface implementation explicitly
var (
	_ storage.KVStorage = (*Storage)(nil)
)

// Storage struct defines data structure handling and provides support for adding new implementations.
type Storage struct {
	mu sync.Mutex
	DB map[string]string
}

// InitStorage initializes a Storage object and sets its attributes.
func InitStorage() *Storage {
	db := make(map[string]string)
	return &Storage{DB: db}
}

// Add stores a key-value pair failing when the key is already occupied.
func (s *Storage) Add(ctx context.Context, key string, value string) error {
	// result channels are buffered so a worker abandoned on ctx cancellation
	// never blocks on the send while holding the mutex
	addDone := make(chan bool, 1)
	addError := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, ok := s.DB[key]
		if ok {
			addError <- &storageErrors.AlreadyExistsError{Key: key}
			return
		}
		s.DB[key] = value
		addDone <- true
	}()

	// wait for the first channel to retrieve a value
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("adding record failed")
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case addErr := <-addError:
		log.Warn().Err(addErr).Msg("adding record failed")
		return addErr
	case <-addDone:
		log.Debug().Str("key", key).Msg("record added")
		return nil
	}
}

// Set stores a key-value pair overwriting any previous value.
func (s *Storage) Set(ctx context.Context, key string, value string) error {
	setDone := make(chan bool, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.DB[key] = value
		setDone <- true
	}()

	// wait for the first channel to retrieve a value
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("setting record failed")
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case <-setDone:
		log.Debug().Str("key", key).Msg("record set")
		return nil
	}
}

// Get returns a value based on the given key.
func (s *Storage) Get(ctx context.Context, key string) (value string, err error) {
	getDone := make(chan string, 1)
	getError := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		v, ok := s.DB[key]
		if !ok {
			getError <- &storageErrors.NotFoundError{Key: key}
			return
		}
		getDone <- v
	}()

	// wait for the first channel to retrieve a value
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("retrieving record failed")
		return "", &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case getErr := <-getError:
		log.Debug().Err(getErr).Msg("retrieving record failed")
		return "", getErr
	case v := <-getDone:
		log.Debug().Str("key", key).Msg("record retrieved")
		return v, nil
	}
}

// ListByPrefix returns a snapshot of all key-value pairs whose keys share a prefix.
func (s *Storage) ListByPrefix(ctx context.Context, prefix string) (records map[string]string, err error) {
	listDone := make(chan map[string]string, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		matched := make(map[string]string)
		for key, value := range s.DB {
			if strings.HasPrefix(key, prefix) {
				matched[key] = value
			}
		}
		listDone <- matched
	}()

	// wait for the first channel to retrieve a value
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("listing records failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case matched := <-listDone:
		log.Debug().Str("prefix", prefix).Int("count", len(matched)).Msg("records listed")
		return matched, nil
	}
}

// Remove deletes a key-value pair, absent keys are not an error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	removeDone := make(chan bool, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.DB, key)
		removeDone <- true
	}()

	// wait for the first channel to retrieve a value
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("removing record failed")
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case <-removeDone:
		log.Debug().Str("key", key).Msg("record removed")
		return nil
	}
}

// Ping is a mock for PSQL DB pinger for inmemory DB handling.
func (s *Storage) Ping() error {
	return nil
}

// Close is a mock for PSQL DB closer for inmemory DB handling.
func (s *Storage) Close() error {
	return nil
}
