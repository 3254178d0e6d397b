package inremote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmartynov/vm_go_code_drop/internal/config"
	storageErrors "github.com/vmartynov/vm_go_code_drop/internal/storage/v1/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/modelstorage"
)

// documentServer is a minimal in-memory rendition of the third-party document store API.
func documentServer() *httptest.Server {
	var mu sync.Mutex
	docs := make(map[string]string)
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/documents", func(w http.ResponseWriter, r *http.Request) {
		var doc modelstorage.RemoteDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if _, ok := docs[doc.Key]; ok {
			w.WriteHeader(http.StatusConflict)
			return
		}
		docs[doc.Key] = doc.Value
		w.WriteHeader(http.StatusCreated)
	})
	r.Put("/documents/{key}", func(w http.ResponseWriter, r *http.Request) {
		var doc modelstorage.RemoteDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		docs[chi.URLParam(r, "key")] = doc.Value
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/documents/{key}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		key := chi.URLParam(r, "key")
		value, ok := docs[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(modelstorage.RemoteDocument{Key: key, Value: value})
	})
	r.Get("/documents", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		prefix := r.URL.Query().Get("prefix")
		matched := make([]modelstorage.RemoteDocument, 0)
		for key, value := range docs {
			if strings.HasPrefix(key, prefix) {
				matched = append(matched, modelstorage.RemoteDocument{Key: key, Value: value})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(matched)
	})
	r.Delete("/documents/{key}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		delete(docs, chi.URLParam(r, "key"))
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(r)
}

func initTestStorage(t *testing.T, address string) (*Storage, context.CancelFunc, *sync.WaitGroup) {
	cfg := &config.StorageConfig{RemoteAPIAddress: address}
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	s, err := InitStorage(ctx, wg, cfg)
	require.NoError(t, err)
	return s, cancel, wg
}

// Tests

func TestAddGetSetRemove(t *testing.T) {
	ts := documentServer()
	defer ts.Close()
	s, cancel, wg := initTestStorage(t, ts.URL)

	require.NoError(t, s.Add(context.Background(), "file:AAAA", "payload"))
	err := s.Add(context.Background(), "file:AAAA", "other")
	var alreadyExistsError *storageErrors.AlreadyExistsError
	assert.ErrorAs(t, err, &alreadyExistsError)

	v, err := s.Get(context.Background(), "file:AAAA")
	require.NoError(t, err)
	assert.Equal(t, "payload", v)

	require.NoError(t, s.Set(context.Background(), "file:AAAA", "rewritten"))
	v, err = s.Get(context.Background(), "file:AAAA")
	require.NoError(t, err)
	assert.Equal(t, "rewritten", v)

	require.NoError(t, s.Remove(context.Background(), "file:AAAA"))
	_, err = s.Get(context.Background(), "file:AAAA")
	var notFoundError *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundError)

	cancel()
	wg.Wait()
}

func TestListByPrefix(t *testing.T) {
	ts := documentServer()
	defer ts.Close()
	s, cancel, wg := initTestStorage(t, ts.URL)

	require.NoError(t, s.Set(context.Background(), "file:AAAA", "1"))
	require.NoError(t, s.Set(context.Background(), "room:BBBB", "2"))
	records, err := s.ListByPrefix(context.Background(), "file:")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"file:AAAA": "1"}, records)

	cancel()
	wg.Wait()
}

func TestPing(t *testing.T) {
	ts := documentServer()
	defer ts.Close()
	s, cancel, wg := initTestStorage(t, ts.URL)
	assert.NoError(t, s.Ping())
	cancel()
	wg.Wait()
}

func TestUnreachableHost(t *testing.T) {
	s, cancel, wg := initTestStorage(t, "http://127.0.0.1:1")
	_, err := s.Get(context.Background(), "file:AAAA")
	var remoteAPIError *storageErrors.RemoteAPIError
	assert.ErrorAs(t, err, &remoteAPIError)
	cancel()
	wg.Wait()
}
