// Package room provides functionality for code-keyed message rooms shared
// through a common storage substrate. Participants converge by re-reading the
// whole room record on a fixed interval; concurrent writers race and the last
// write wins, no conflict is signalled.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vmartynov/vm_go_code_drop/internal/config"
	"github.com/vmartynov/vm_go_code_drop/internal/service/codes"
	serviceErrors "github.com/vmartynov/vm_go_code_drop/internal/service/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/service/modelshare"
	"github.com/vmartynov/vm_go_code_drop/internal/service/room"
	storage "github.com/vmartynov/vm_go_code_drop/internal/storage/v1"
	storageErrors "github.com/vmartynov/vm_go_code_drop/internal/storage/v1/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/modelstorage"
)

// KeyPrefix namespaces room records inside the shared substrate.
const KeyPrefix = "room:"

// Check interface implementation explicitly
var (
	_ room.Processor = (*Room)(nil)
)

// Room struct defines data structure handling and provides support for adding new implementations.
type Room struct {
	Cfg       *config.ServiceConfig
	generator *codes.Generator
	KVStorage storage.KVStorage
}

// InitRoom initializes a Room object and sets its attributes.
func InitRoom(cfg *config.ServiceConfig, s storage.KVStorage) (*Room, error) {
	if s == nil {
		return nil, &serviceErrors.ServiceFoundNilStorage{Msg: "nil storage was passed to service initializer"}
	}
	return &Room{
		Cfg:       cfg,
		generator: codes.NewGenerator(),
		KVStorage: s,
	}, nil
}

// Create allocates a code and writes an empty room with the creator registered
// as its first participant.
func (r *Room) Create(ctx context.Context, device string) (code string, err error) {
	now := time.Now()
	for attempt := 0; attempt < codes.MaxAttempts; attempt++ {
		candidate := r.generator.Generate()
		record := modelstorage.RoomRecord{
			Code:         candidate,
			Messages:     []modelstorage.Message{},
			Participants: map[string]int64{device: now.Unix()},
			CreatedAt:    now.Unix(),
		}
		raw, err := json.Marshal(record)
		if err != nil {
			return "", err
		}
		err = r.KVStorage.Add(ctx, KeyPrefix+candidate, string(raw))
		if err != nil {
			var alreadyExistsError *storageErrors.AlreadyExistsError
			if errors.As(err, &alreadyExistsError) {
				continue
			}
			return "", err
		}
		log.Info().Str("code", candidate).Str("device", device).Msg("room created")
		return candidate, nil
	}
	return "", &serviceErrors.CodeSpaceExhaustedError{Attempts: codes.MaxAttempts}
}

// Join registers a device in an existing room and starts a polling session for it.
func (r *Room) Join(ctx context.Context, code string, device string) (session room.Session, err error) {
	record, err := r.fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	record.Participants[device] = time.Now().Unix()
	err = r.store(ctx, record)
	if err != nil {
		return nil, err
	}
	s := newSession(r, code, device)
	if err := s.refresh(ctx); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("initial room refresh failed")
	}
	s.start()
	log.Info().Str("code", code).Str("device", device).Msg("room joined")
	return s, nil
}

// Append adds one message to a room by rewriting the whole record. The write
// is a blind overwrite, a concurrent appender observed after the read is lost.
func (r *Room) Append(ctx context.Context, code string, device string, text string) error {
	record, err := r.fetch(ctx, code)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	record.Messages = append(record.Messages, modelstorage.Message{
		Device: device,
		Text:   text,
		SentAt: now,
	})
	if limit := r.Cfg.RoomHistoryLimit; limit > 0 && len(record.Messages) > limit {
		record.Messages = record.Messages[len(record.Messages)-limit:]
	}
	record.Participants[device] = now
	err = r.store(ctx, record)
	if err != nil {
		return err
	}
	log.Debug().Str("code", code).Str("device", device).Msg("message appended")
	return nil
}

// Peek returns a one-shot snapshot of a room without joining it.
func (r *Room) Peek(ctx context.Context, code string) (view modelshare.RoomView, err error) {
	record, err := r.fetch(ctx, code)
	if err != nil {
		return modelshare.RoomView{}, err
	}
	return toView(record), nil
}

// Count returns the number of live rooms.
func (r *Room) Count(ctx context.Context) (n int, err error) {
	records, err := r.KVStorage.ListByPrefix(ctx, KeyPrefix)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// fetch validates a code and reads its room record.
func (r *Room) fetch(ctx context.Context, code string) (modelstorage.RoomRecord, error) {
	if !codes.Valid(code) {
		return modelstorage.RoomRecord{}, &serviceErrors.InvalidCodeError{Code: code}
	}
	raw, err := r.KVStorage.Get(ctx, KeyPrefix+code)
	if err != nil {
		return modelstorage.RoomRecord{}, err
	}
	var record modelstorage.RoomRecord
	err = json.Unmarshal([]byte(raw), &record)
	if err != nil {
		return modelstorage.RoomRecord{}, err
	}
	if record.Participants == nil {
		record.Participants = make(map[string]int64)
	}
	return record, nil
}

// store rewrites a whole room record, last write wins.
func (r *Room) store(ctx context.Context, record modelstorage.RoomRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.KVStorage.Set(ctx, KeyPrefix+record.Code, string(raw))
}

// toView converts a storage record into a participant-facing snapshot.
func toView(record modelstorage.RoomRecord) modelshare.RoomView {
	messages := make([]modelshare.Message, 0, len(record.Messages))
	for _, m := range record.Messages {
		messages = append(messages, modelshare.Message{
			Device: m.Device,
			Text:   m.Text,
			SentAt: time.Unix(m.SentAt, 0),
		})
	}
	return modelshare.RoomView{
		Code:         record.Code,
		Messages:     messages,
		Participants: len(record.Participants),
		CreatedAt:    time.Unix(record.CreatedAt, 0),
	}
}
