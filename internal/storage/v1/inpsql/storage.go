// Package inpsql provides data types and methods for PSQL storage operations.
package inpsql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
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

// Storage struct defines data structure handling and provides support for adding new implementations.
type Storage struct {
	mu  sync.Mutex
	Cfg *config.StorageConfig
	DB  *sqlx.DB
}

// InitStorage initializes a Storage object, sets its attributes and starts a listener for DB closure.
func InitStorage(ctx context.Context, wg *sync.WaitGroup, cfg *config.StorageConfig) (*Storage, error) {
	db, err := sqlx.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open PSQL DB")
	}
	st := Storage{
		Cfg: cfg,
		DB:  db,
	}
	err = st.createTable(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create PSQL table")
	}
	go func() {
		defer wg.Done()
		<-ctx.Done()
		err := st.DB.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("could not close PSQL DB connection")
		}
		log.Info().Msg("PSQL DB connection closed successfully")
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
		query := `INSERT INTO records (key, value) VALUES ($1, $2)`
		_, err := s.DB.ExecContext(ctx, query, key, value)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				addError <- &storageErrors.AlreadyExistsError{Err: err, Key: key}
				return
			}
			addError <- &storageErrors.ExecutionPSQLError{Err: err}
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
		query := `INSERT INTO records (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value`
		_, err := s.DB.ExecContext(ctx, query, key, value)
		if err != nil {
			setError <- &storageErrors.ExecutionPSQLError{Err: err}
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
		query := `SELECT value FROM records WHERE key = $1`
		var v string
		// use GetContext due to one variable usage as an output
		err := s.DB.GetContext(ctx, &v, query, key)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				getError <- &storageErrors.NotFoundError{Err: err, Key: key}
				return
			}
			getError <- &storageErrors.ScanningPSQLError{Err: err}
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
	listError := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		query := `SELECT key, value FROM records WHERE key LIKE $1`
		var rows []modelstorage.RecordPSQLEntry
		// escape LIKE metacharacters so that the prefix is matched literally
		pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix) + "%"
		err := s.DB.SelectContext(ctx, &rows, query, pattern)
		if err != nil {
			listError <- &storageErrors.ScanningPSQLError{Err: err}
			return
		}
		matched := make(map[string]string, len(rows))
		for _, row := range rows {
			matched[row.Key] = row.Value
		}
		listDone <- matched
	}()

	// wait for the first channel to retrieve a value
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("listing records failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case listErr := <-listError:
		log.Warn().Err(listErr).Msg("listing records failed")
		return nil, listErr
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
		query := `DELETE FROM records WHERE key = $1`
		_, err := s.DB.ExecContext(ctx, query, key)
		if err != nil {
			removeError <- &storageErrors.ExecutionPSQLError{Err: err}
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

// Ping checks the PSQL DB connection.
func (s *Storage) Ping() error {
	return s.DB.Ping()
}

// Close closes the PSQL DB connection.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// createTable creates a table for PSQL DB storage if not exist.
func (s *Storage) createTable(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS records (
		key text not null unique,
		value text not null
	);`
	_, err := s.DB.ExecContext(ctx, query)
	return err
}
