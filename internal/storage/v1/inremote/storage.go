// Package inremote provides data types and methods for keeping records in a
// generic third-party document store over its HTTP API. The store is treated
// as ambient key-value storage, no retries and no idempotency keys.
package inremote

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"
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
	Cfg    *config.StorageConfig
	Client *resty.Client
}

// InitStorage initializes a Storage object and sets its attributes.
func InitStorage(ctx context.Context, wg *sync.WaitGroup, cfg *config.StorageConfig) (*Storage, error) {
	client := resty.New().SetBaseURL(cfg.RemoteAPIAddress)
	st := Storage{
		Cfg:    cfg,
		Client: client,
	}
	go func() {
		defer wg.Done()
		<-ctx.Done()
		log.Info().Msg("remote document store client released")
	}()
	return &st, nil
}

// Add creates a document failing when the key is already occupied.
func (s *Storage) Add(ctx context.Context, key string, value string) error {
	res, err := s.Client.R().
		SetContext(ctx).
		SetBody(modelstorage.RemoteDocument{Key: key, Value: value}).
		Post("/documents")
	if err != nil {
		if ctx.Err() != nil {
			return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
		}
		return &storageErrors.RemoteAPIError{Err: err}
	}
	switch res.StatusCode() {
	case http.StatusCreated:
		log.Debug().Str("key", key).Msg("document created")
		return nil
	case http.StatusConflict:
		return &storageErrors.AlreadyExistsError{Key: key}
	default:
		log.Warn().Int("status", res.StatusCode()).Msg("creating document failed")
		return &storageErrors.RemoteAPIError{Status: res.StatusCode()}
	}
}

// Set upserts a document overwriting any previous value.
func (s *Storage) Set(ctx context.Context, key string, value string) error {
	res, err := s.Client.R().
		SetContext(ctx).
		SetBody(modelstorage.RemoteDocument{Key: key, Value: value}).
		Put("/documents/" + key)
	if err != nil {
		if ctx.Err() != nil {
			return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
		}
		return &storageErrors.RemoteAPIError{Err: err}
	}
	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusCreated {
		log.Warn().Int("status", res.StatusCode()).Msg("upserting document failed")
		return &storageErrors.RemoteAPIError{Status: res.StatusCode()}
	}
	log.Debug().Str("key", key).Msg("document upserted")
	return nil
}

// Get returns a document value based on the given key.
func (s *Storage) Get(ctx context.Context, key string) (value string, err error) {
	var doc modelstorage.RemoteDocument
	res, err := s.Client.R().
		SetContext(ctx).
		SetResult(&doc).
		Get("/documents/" + key)
	if err != nil {
		if ctx.Err() != nil {
			return "", &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
		}
		return "", &storageErrors.RemoteAPIError{Err: err}
	}
	switch res.StatusCode() {
	case http.StatusOK:
		log.Debug().Str("key", key).Msg("document retrieved")
		return doc.Value, nil
	case http.StatusNotFound:
		return "", &storageErrors.NotFoundError{Key: key}
	default:
		log.Warn().Int("status", res.StatusCode()).Msg("retrieving document failed")
		return "", &storageErrors.RemoteAPIError{Status: res.StatusCode()}
	}
}

// ListByPrefix returns a snapshot of all documents whose keys share a prefix.
func (s *Storage) ListByPrefix(ctx context.Context, prefix string) (records map[string]string, err error) {
	var docs []modelstorage.RemoteDocument
	res, err := s.Client.R().
		SetContext(ctx).
		SetQueryParam("prefix", prefix).
		SetResult(&docs).
		Get("/documents")
	if err != nil {
		if ctx.Err() != nil {
			return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
		}
		return nil, &storageErrors.RemoteAPIError{Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		log.Warn().Int("status", res.StatusCode()).Msg("listing documents failed")
		return nil, &storageErrors.RemoteAPIError{Status: res.StatusCode()}
	}
	matched := make(map[string]string, len(docs))
	for _, doc := range docs {
		matched[doc.Key] = doc.Value
	}
	log.Debug().Str("prefix", prefix).Int("count", len(matched)).Msg("documents listed")
	return matched, nil
}

// Remove deletes a document, absent keys are not an error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	res, err := s.Client.R().
		SetContext(ctx).
		Delete("/documents/" + key)
	if err != nil {
		if ctx.Err() != nil {
			return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
		}
		return &storageErrors.RemoteAPIError{Err: err}
	}
	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusNoContent && res.StatusCode() != http.StatusNotFound {
		log.Warn().Int("status", res.StatusCode()).Msg("removing document failed")
		return &storageErrors.RemoteAPIError{Status: res.StatusCode()}
	}
	log.Debug().Str("key", key).Msg("document removed")
	return nil
}

// Ping checks the remote document store availability.
func (s *Storage) Ping() error {
	res, err := s.Client.R().Get("/health")
	if err != nil {
		return &storageErrors.RemoteAPIError{Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		return &storageErrors.RemoteAPIError{Status: res.StatusCode()}
	}
	return nil
}

// Close is a mock for PSQL DB closer for remote document store handling.
func (s *Storage) Close() error {
	return nil
}
