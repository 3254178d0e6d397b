// Package infile provides data types and methods for local file storage operations.
// Mutations are journaled to an append-only JSON-lines file and replayed on start.
package infile

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vmartynov/vm_go_code_drop/internal/config"
	storage "github.com/vmartynov/vm_go_code_drop/internal/storage/v1"
	storageErrors "github.com/vmartynov/vm_go_code_drop/internal/storage/v1/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/modelstorage"
)

// Check interface implementation explicitly
var (
	_ storage.KVStorage = (*Storage)(nil)
)

const (
	opAdd    = "add"
	opSet    = "set"
	opRemove = "remove"
)

// Storage struct defines data structure handling and provides support for adding new implementations.
type Storage struct {
	mu      sync.Mutex
	Cfg     *config.StorageConfig
	DB      map[string]string
	Encoder *json.Encoder
}

// InitStorage initializes a Storage object, replays the journal and sets up the journal encoder.
func InitStorage(ctx context.Context, wg *sync.WaitGroup, cfg *config.StorageConfig) (*Storage, error) {
	db := make(map[string]string)
	st := Storage{
		Cfg: cfg,
		DB:  db,
	}
	err := st.restore()
	if err != nil {
		log.Fatal().Err(err).Msg("could not restore file storage")
	}
	// open file outside goroutine since this operation might not finish prior to encoding operations
	file, err := os.OpenFile(st.Cfg.FileStoragePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0777)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open file storage")
	}
	st.Encoder = json.NewEncoder(file)
	// start a goroutine to listen for ctx cancellation followed by file storage closure,
	// use sync.WaitGroup to prevent goroutine premature termination when main exits
	go func() {
		defer wg.Done()
		<-ctx.Done()
		err := file.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("could not close file storage")
		}
		log.Info().Msg("file storage closed successfully")
	}()
	return &st, nil
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
		err := s.journal(opAdd, key, value)
		if err != nil {
			addError <- &storageErrors.FileWriteError{Err: err}
			return
		}
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
	setError := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.DB[key] = value
		err := s.journal(opSet, key, value)
		if err != nil {
			setError <- &storageErrors.FileWriteError{Err: err}
			return
		}
		setDone <- true
	}()

	// wait for the first channel to retrieve a value
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("setting record failed")
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case setErr := <-setError:
		log.Warn().Err(setErr).Msg("setting record failed")
		return setErr
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
	removeError := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.DB, key)
		err := s.journal(opRemove, key, "")
		if err != nil {
			removeError <- &storageErrors.FileWriteError{Err: err}
			return
		}
		removeDone <- true
	}()

	// wait for the first channel to retrieve a value
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("removing record failed")
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case removeErr := <-removeError:
		log.Warn().Err(removeErr).Msg("removing record failed")
		return removeErr
	case <-removeDone:
		log.Debug().Str("key", key).Msg("record removed")
		return nil
	}
}

// restore fills the tmpfs DB with records by replaying the journal.
func (s *Storage) restore() error {
	file, err := os.OpenFile(s.Cfg.FileStoragePath, os.O_RDONLY|os.O_CREATE, 0777)
	if err != nil {
		return err
	}
	defer file.Close()
	reader := bufio.NewScanner(file)
	for reader.Scan() {
		var entry modelstorage.JournalEntry
		err := json.Unmarshal(reader.Bytes(), &entry)
		if err != nil {
			return err
		}
		switch entry.Op {
		case opAdd, opSet:
			s.DB[entry.Key] = entry.Value
		case opRemove:
			delete(s.DB, entry.Key)
		}
	}
	log.Info().Int("records", len(s.DB)).Msg("file storage was restored")
	return nil
}

// journal appends one mutation to the journal file, caller must hold the mutex.
func (s *Storage) journal(op, key, value string) error {
	entry := modelstorage.JournalEntry{
		Op:    op,
		Key:   key,
		Value: value,
	}
	return s.Encoder.Encode(entry)
}

// Ping is a mock for PSQL DB pinger for infile DB handling.
func (s *Storage) Ping() error {
	return nil
}

// Close is a mock for PSQL DB closer for infile DB handling.
func (s *Storage) Close() error {
	return nil
}
