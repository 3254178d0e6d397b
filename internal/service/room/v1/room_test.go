package room

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmartynov/vm_go_code_drop/internal/config"
	serviceErrors "github.com/vmartynov/vm_go_code_drop/internal/service/errors"
	storageErrors "github.com/vmartynov/vm_go_code_drop/internal/storage/v1/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/inmemory"
)

func newServiceConfig(t *testing.T) *config.ServiceConfig {
	cfg, err := config.NewServiceConfig()
	require.NoError(t, err)
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

// Tests

func TestInitRoom(t *testing.T) {
	_, err := InitRoom(nil, nil)
	assert.Equal(t, "nil storage was passed to service initializer", err.Error())
}

func TestCreate(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitRoom(newServiceConfig(t), st)
	code, err := processor.Create(context.Background(), "device-a")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}$`), code)

	view, err := processor.Peek(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, code, view.Code)
	assert.Empty(t, view.Messages)
	assert.Equal(t, 1, view.Participants)
}

func TestJoin_NotFound(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitRoom(newServiceConfig(t), st)
	_, err := processor.Join(context.Background(), "ZZZZ", "device-b")
	var notFoundError *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundError)
}

func TestJoin_InvalidCode(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitRoom(newServiceConfig(t), st)
	_, err := processor.Join(context.Background(), "zz", "device-b")
	var invalidCodeError *serviceErrors.InvalidCodeError
	assert.ErrorAs(t, err, &invalidCodeError)
}

func TestAppendAndPeek(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitRoom(newServiceConfig(t), st)
	code, err := processor.Create(context.Background(), "device-a")
	require.NoError(t, err)

	require.NoError(t, processor.Append(context.Background(), code, "device-a", "first"))
	require.NoError(t, processor.Append(context.Background(), code, "device-b", "second"))

	view, err := processor.Peek(context.Background(), code)
	require.NoError(t, err)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "first", view.Messages[0].Text)
	assert.Equal(t, "device-a", view.Messages[0].Device)
	assert.Equal(t, "second", view.Messages[1].Text)
	assert.Equal(t, "device-b", view.Messages[1].Device)
	assert.Equal(t, 2, view.Participants)
}

func TestHistoryCap(t *testing.T) {
	st := inmemory.InitStorage()
	cfg := newServiceConfig(t)
	cfg.RoomHistoryLimit = 5
	processor, _ := InitRoom(cfg, st)
	code, err := processor.Create(context.Background(), "device-a")
	require.NoError(t, err)

	for _, text := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"} {
		require.NoError(t, processor.Append(context.Background(), code, "device-a", text))
	}
	view, err := processor.Peek(context.Background(), code)
	require.NoError(t, err)
	require.Len(t, view.Messages, 5)
	assert.Equal(t, "m3", view.Messages[0].Text)
	assert.Equal(t, "m7", view.Messages[4].Text)
}

func TestLastWriteWins(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitRoom(newServiceConfig(t), st)
	code, err := processor.Create(context.Background(), "device-a")
	require.NoError(t, err)

	// snapshot the record the way a slow writer would have read it
	stale, err := st.Get(context.Background(), KeyPrefix+code)
	require.NoError(t, err)

	require.NoError(t, processor.Append(context.Background(), code, "device-a", "hello"))

	// the slow writer lands last with a whole-record overwrite
	require.NoError(t, st.Set(context.Background(), KeyPrefix+code, stale))

	view, err := processor.Peek(context.Background(), code)
	require.NoError(t, err)
	// the overwrite silently dropped the earlier append, this is the documented policy
	assert.Empty(t, view.Messages)
}

func TestSessionPropagation(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitRoom(newServiceConfig(t), st)
	code, err := processor.Create(context.Background(), "device-a")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}$`), code)

	sessionA, err := processor.Join(context.Background(), code, "device-a")
	require.NoError(t, err)
	defer sessionA.Leave()
	sessionB, err := processor.Join(context.Background(), code, "device-b")
	require.NoError(t, err)
	defer sessionB.Leave()

	require.NoError(t, sessionA.Append(context.Background(), "hello"))

	// view B converges within one poll interval
	assert.Eventually(t, func() bool {
		view := sessionB.View()
		return len(view.Messages) == 1 &&
			view.Messages[0].Text == "hello" &&
			view.Messages[0].Device == "device-a"
	}, time.Second, 5*time.Millisecond)
}

func TestSessionUpdates(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitRoom(newServiceConfig(t), st)
	code, err := processor.Create(context.Background(), "device-a")
	require.NoError(t, err)

	sessionB, err := processor.Join(context.Background(), code, "device-b")
	require.NoError(t, err)
	defer sessionB.Leave()

	require.NoError(t, processor.Append(context.Background(), code, "device-a", "ping"))

	// the first snapshot on the channel may predate the append, keep reading
	deadline := time.After(time.Second)
	for {
		select {
		case view := <-sessionB.Updates():
			if len(view.Messages) == 0 {
				continue
			}
			assert.Equal(t, "ping", view.Messages[len(view.Messages)-1].Text)
			return
		case <-deadline:
			t.Fatal("no update observed within one second")
		}
	}
}

func TestSessionLeave(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitRoom(newServiceConfig(t), st)
	code, err := processor.Create(context.Background(), "device-a")
	require.NoError(t, err)

	session, err := processor.Join(context.Background(), code, "device-a")
	require.NoError(t, err)
	session.Leave()
	// Leave is idempotent
	session.Leave()
	assert.Equal(t, code, session.Code())
	assert.Equal(t, "device-a", session.Device())
}

func TestConcurrentAppendsBothPersist(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitRoom(newServiceConfig(t), st)
	code, err := processor.Create(context.Background(), "device-a")
	require.NoError(t, err)

	// two independent participant views appending through list-append semantics
	require.NoError(t, processor.Append(context.Background(), code, "device-a", "from-a"))
	require.NoError(t, processor.Append(context.Background(), code, "device-b", "from-b"))

	view, err := processor.Peek(context.Background(), code)
	require.NoError(t, err)
	texts := make([]string, 0, len(view.Messages))
	for _, m := range view.Messages {
		texts = append(texts, m.Text)
	}
	assert.Contains(t, texts, "from-a")
	assert.Contains(t, texts, "from-b")
}
