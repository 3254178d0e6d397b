package share

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmartynov/vm_go_code_drop/internal/config"
	"github.com/vmartynov/vm_go_code_drop/internal/mocks"
	"github.com/vmartynov/vm_go_code_drop/internal/service/codes"
	serviceErrors "github.com/vmartynov/vm_go_code_drop/internal/service/errors"
	storageErrors "github.com/vmartynov/vm_go_code_drop/internal/storage/v1/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/inmemory"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/modelstorage"
)

func newServiceConfig(t *testing.T) *config.ServiceConfig {
	cfg, err := config.NewServiceConfig()
	require.NoError(t, err)
	return cfg
}

// Tests

func TestInitShare(t *testing.T) {
	_, err := InitShare(newServiceConfig(t), nil)
	assert.Equal(t, "nil storage was passed to service initializer", err.Error())
}

func TestUpload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mocks.NewMockKVStorage(ctrl)
	s.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	processor, _ := InitShare(newServiceConfig(t), s)
	code, err := processor.Upload(context.Background(), "notes.txt", []byte("payload"), 0)
	assert.NoError(t, err)
	assert.True(t, codes.Valid(code))
}

func TestUpload_CodeSpaceExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mocks.NewMockKVStorage(ctrl)
	s.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Return(&storageErrors.AlreadyExistsError{Key: "file:AAAA"}).Times(codes.MaxAttempts)
	processor, _ := InitShare(newServiceConfig(t), s)
	_, err := processor.Upload(context.Background(), "notes.txt", []byte("payload"), 0)
	var exhaustedError *serviceErrors.CodeSpaceExhaustedError
	assert.ErrorAs(t, err, &exhaustedError)
}

func TestDownload_InvalidCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mocks.NewMockKVStorage(ctrl)
	processor, _ := InitShare(newServiceConfig(t), s)
	_, err := processor.Download(context.Background(), "ab")
	var invalidCodeError *serviceErrors.InvalidCodeError
	assert.ErrorAs(t, err, &invalidCodeError)
}

func TestUploadDownloadRoundtrip(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitShare(newServiceConfig(t), st)
	payload := []byte{0x00, 0x01, 0xff, 0x7f, 0x80}
	code, err := processor.Upload(context.Background(), "blob.bin", payload, time.Hour)
	require.NoError(t, err)

	file, err := processor.Download(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "blob.bin", file.FileName)
	assert.Equal(t, payload, file.Payload)

	// one-time semantics, the second download must not find the record
	_, err = processor.Download(context.Background(), code)
	var notFoundError *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundError)
}

func TestDownload_NeverIssued(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitShare(newServiceConfig(t), st)
	_, err := processor.Download(context.Background(), "ZZZZ")
	var notFoundError *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundError)
}

func TestDownload_Expired(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitShare(newServiceConfig(t), st)
	record := modelstorage.FileRecord{
		Code:      "ABCD",
		FileName:  "old.txt",
		Payload:   []byte("stale"),
		CreatedAt: time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, st.Add(context.Background(), KeyPrefix+"ABCD", string(raw)))

	_, err = processor.Download(context.Background(), "ABCD")
	var notFoundError *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundError)
}

func TestCount(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitShare(newServiceConfig(t), st)
	for i := 0; i < 3; i++ {
		_, err := processor.Upload(context.Background(), "f.txt", []byte("x"), time.Hour)
		require.NoError(t, err)
	}
	n, err := processor.Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSweep(t *testing.T) {
	st := inmemory.InitStorage()
	processor, _ := InitShare(newServiceConfig(t), st)
	liveCode, err := processor.Upload(context.Background(), "live.txt", []byte("live"), time.Hour)
	require.NoError(t, err)
	record := modelstorage.FileRecord{
		Code:      "ABCD",
		FileName:  "old.txt",
		Payload:   []byte("stale"),
		CreatedAt: time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, st.Add(context.Background(), KeyPrefix+"ABCD", string(raw)))

	processor.sweep(context.Background())

	n, err := processor.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = st.Get(context.Background(), KeyPrefix+liveCode)
	assert.NoError(t, err)
}

func TestStartSweeper(t *testing.T) {
	st := inmemory.InitStorage()
	cfg := newServiceConfig(t)
	cfg.SweepInterval = 10 * time.Millisecond
	processor, _ := InitShare(cfg, st)
	record := modelstorage.FileRecord{
		Code:      "EFGH",
		FileName:  "old.txt",
		Payload:   []byte("stale"),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, st.Add(context.Background(), KeyPrefix+"EFGH", string(raw)))

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	processor.StartSweeper(ctx, wg)
	assert.Eventually(t, func() bool {
		n, err := processor.Count(context.Background())
		return err == nil && n == 0
	}, time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()
}
