// Package share provides functionality for stashing a file payload under a
// short code and handing it back exactly once.
package share

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vmartynov/vm_go_code_drop/internal/config"
	"github.com/vmartynov/vm_go_code_drop/internal/service/codes"
	serviceErrors "github.com/vmartynov/vm_go_code_drop/internal/service/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/service/modelshare"
	"github.com/vmartynov/vm_go_code_drop/internal/service/share"
	storage "github.com/vmartynov/vm_go_code_drop/internal/storage/v1"
	storageErrors "github.com/vmartynov/vm_go_code_drop/internal/storage/v1/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/modelstorage"
)

// KeyPrefix namespaces file records inside the shared substrate.
const KeyPrefix = "file:"

// Check interface implementation explicitly
var (
	_ share.Processor = (*Share)(nil)
)

// Share struct defines data structure handling and provides support for adding new implementations.
type Share struct {
	Cfg       *config.ServiceConfig
	generator *codes.Generator
	KVStorage storage.KVStorage
}

// InitShare initializes a Share object and sets its attributes.
func InitShare(cfg *config.ServiceConfig, s storage.KVStorage) (*Share, error) {
	if s == nil {
		return nil, &serviceErrors.ServiceFoundNilStorage{Msg: "nil storage was passed to service initializer"}
	}
	return &Share{
		Cfg:       cfg,
		generator: codes.NewGenerator(),
		KVStorage: s,
	}, nil
}

// Upload stores a file payload under a freshly allocated code and returns the code.
// A zero ttl falls back to the configured default.
func (s *Share) Upload(ctx context.Context, fileName string, payload []byte, ttl time.Duration) (code string, err error) {
	if ttl <= 0 {
		ttl = s.Cfg.DefaultFileTTL
	}
	now := time.Now()
	for attempt := 0; attempt < codes.MaxAttempts; attempt++ {
		candidate := s.generator.Generate()
		record := modelstorage.FileRecord{
			Code:      candidate,
			FileName:  fileName,
			Payload:   payload,
			CreatedAt: now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		}
		raw, err := json.Marshal(record)
		if err != nil {
			return "", err
		}
		err = s.KVStorage.Add(ctx, KeyPrefix+candidate, string(raw))
		if err != nil {
			var alreadyExistsError *storageErrors.AlreadyExistsError
			if errors.As(err, &alreadyExistsError) {
				continue
			}
			return "", err
		}
		log.Info().Str("code", candidate).Str("fileName", fileName).Msg("file stored")
		return candidate, nil
	}
	return "", &serviceErrors.CodeSpaceExhaustedError{Attempts: codes.MaxAttempts}
}

// Download retrieves the file stored under a code and consumes the record, so
// a later download of the same code reports not found. Consumption is a plain
// get-then-remove, not an atomic take: requests racing within the same instant
// may each see the payload. Expired records are reported as not found, never
// as a partial payload.
func (s *Share) Download(ctx context.Context, code string) (file modelshare.File, err error) {
	if !codes.Valid(code) {
		return modelshare.File{}, &serviceErrors.InvalidCodeError{Code: code}
	}
	raw, err := s.KVStorage.Get(ctx, KeyPrefix+code)
	if err != nil {
		return modelshare.File{}, err
	}
	var record modelstorage.FileRecord
	err = json.Unmarshal([]byte(raw), &record)
	if err != nil {
		return modelshare.File{}, err
	}
	if record.ExpiresAt > 0 && time.Now().Unix() >= record.ExpiresAt {
		if removeErr := s.KVStorage.Remove(ctx, KeyPrefix+code); removeErr != nil {
			log.Warn().Err(removeErr).Str("code", code).Msg("could not remove expired file record")
		}
		return modelshare.File{}, &storageErrors.NotFoundError{Key: KeyPrefix + code}
	}
	// one-time download semantics, consume before handing out
	if removeErr := s.KVStorage.Remove(ctx, KeyPrefix+code); removeErr != nil {
		log.Warn().Err(removeErr).Str("code", code).Msg("could not consume file record")
	}
	log.Info().Str("code", code).Str("fileName", record.FileName).Msg("file consumed")
	return modelshare.File{
		Code:      record.Code,
		FileName:  record.FileName,
		Payload:   record.Payload,
		CreatedAt: time.Unix(record.CreatedAt, 0),
	}, nil
}

// Count returns the number of live file records.
func (s *Share) Count(ctx context.Context) (n int, err error) {
	records, err := s.KVStorage.ListByPrefix(ctx, KeyPrefix)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// StartSweeper starts a loop removing expired file records on the configured
// interval. The loop stops when ctx is cancelled.
func (s *Share) StartSweeper(ctx context.Context, wg *sync.WaitGroup) {
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.Cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("expiry sweeper stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// sweep performs one full scan over file records and removes the expired ones.
func (s *Share) sweep(ctx context.Context) {
	records, err := s.KVStorage.ListByPrefix(ctx, KeyPrefix)
	if err != nil {
		log.Warn().Err(err).Msg("expiry sweep could not list records")
		return
	}
	now := time.Now().Unix()
	removed := 0
	for key, raw := range records {
		var record modelstorage.FileRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("expiry sweep skipped a malformed record")
			continue
		}
		if record.ExpiresAt > 0 && now >= record.ExpiresAt {
			if err := s.KVStorage.Remove(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("expiry sweep could not remove record")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("expiry sweep finished")
	}
}
