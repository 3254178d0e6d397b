package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageErrors "github.com/vmartynov/vm_go_code_drop/internal/storage/v1/errors"
)

// Tests

func TestAddAndGet(t *testing.T) {
	s := InitStorage()
	err := s.Add(context.Background(), "file:AAAA", "payload")
	require.NoError(t, err)
	v, err := s.Get(context.Background(), "file:AAAA")
	assert.NoError(t, err)
	assert.Equal(t, "payload", v)
}

func TestAdd_AlreadyExists(t *testing.T) {
	s := InitStorage()
	require.NoError(t, s.Add(context.Background(), "file:AAAA", "payload"))
	err := s.Add(context.Background(), "file:AAAA", "other")
	var alreadyExistsError *storageErrors.AlreadyExistsError
	assert.ErrorAs(t, err, &alreadyExistsError)
	// the original value is untouched
	v, err := s.Get(context.Background(), "file:AAAA")
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
}

func TestGet_NotFound(t *testing.T) {
	s := InitStorage()
	_, err := s.Get(context.Background(), "file:ZZZZ")
	var notFoundError *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundError)
}

func TestSet_Overwrites(t *testing.T) {
	s := InitStorage()
	require.NoError(t, s.Set(context.Background(), "room:AAAA", "v1"))
	require.NoError(t, s.Set(context.Background(), "room:AAAA", "v2"))
	v, err := s.Get(context.Background(), "room:AAAA")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}

func TestListByPrefix(t *testing.T) {
	s := InitStorage()
	require.NoError(t, s.Set(context.Background(), "file:AAAA", "1"))
	require.NoError(t, s.Set(context.Background(), "file:BBBB", "2"))
	require.NoError(t, s.Set(context.Background(), "room:CCCC", "3"))
	records, err := s.ListByPrefix(context.Background(), "file:")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"file:AAAA": "1", "file:BBBB": "2"}, records)
}

func TestRemove(t *testing.T) {
	s := InitStorage()
	require.NoError(t, s.Set(context.Background(), "file:AAAA", "1"))
	require.NoError(t, s.Remove(context.Background(), "file:AAAA"))
	_, err := s.Get(context.Background(), "file:AAAA")
	var notFoundError *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundError)
	// removing an absent key is not an error
	assert.NoError(t, s.Remove(context.Background(), "file:AAAA"))
}

func TestContextCancellation(t *testing.T) {
	s := InitStorage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// hold the mutex so that the worker goroutine cannot finish first
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.Set(ctx, "file:AAAA", "1")
	var timeoutError *storageErrors.ContextTimeoutExceededError
	assert.ErrorAs(t, err, &timeoutError)
}

func TestCancelledContextDoesNotWedge(t *testing.T) {
	s := InitStorage()
	require.NoError(t, s.Add(context.Background(), "file:AAAA", "payload"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Add(ctx, "file:BBBB", "other")
	var timeoutError *storageErrors.ContextTimeoutExceededError
	assert.ErrorAs(t, err, &timeoutError)

	// the abandoned worker must not keep the mutex, later operations proceed
	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := s.Get(context.Background(), "file:AAAA")
		assert.NoError(t, err)
		assert.Equal(t, "payload", v)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Get blocked after a cancelled-context Add")
	}
}

func TestPingAndClose(t *testing.T) {
	s := InitStorage()
	assert.NoError(t, s.Ping())
	assert.NoError(t, s.Close())
}
