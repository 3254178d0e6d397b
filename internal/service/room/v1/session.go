package room

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vmartynov/vm_go_code_drop/internal/service/modelshare"
	"github.com/vmartynov/vm_go_code_drop/internal/service/room"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/modelstorage"
)

// Check interface implementation explicitly
var (
	_ room.Session = (*Session)(nil)
)

// Session is one participant's live view of a room. A ticker re-reads the
// shared record on the configured interval and replaces the local view when
// the raw value differs from the last seen snapshot.
type Session struct {
	svc    *Room
	code   string
	device string

	mu      sync.Mutex
	lastRaw string
	view    modelshare.RoomView

	updates chan modelshare.RoomView
	cancel  context.CancelFunc
	done    chan struct{}
	leave   sync.Once
}

func newSession(svc *Room, code string, device string) *Session {
	return &Session{
		svc:     svc,
		code:    code,
		device:  device,
		updates: make(chan modelshare.RoomView, 1),
		done:    make(chan struct{}),
	}
}

// start launches the polling loop; a session polls until Leave is called.
func (s *Session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.svc.Cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Debug().Str("code", s.code).Str("device", s.device).Msg("room session stopped")
				return
			case <-ticker.C:
				if err := s.refresh(ctx); err != nil {
					log.Debug().Err(err).Str("code", s.code).Msg("room poll failed")
				}
			}
		}
	}()
}

// Code returns the room code the session is bound to.
func (s *Session) Code() string {
	return s.code
}

// Device returns the participant device label.
func (s *Session) Device() string {
	return s.device
}

// View returns the last locally seen room snapshot.
func (s *Session) View() modelshare.RoomView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Updates exposes a channel signalled whenever a poll observes a changed
// record. The channel holds at most one pending snapshot, stale snapshots are
// replaced rather than queued.
func (s *Session) Updates() <-chan modelshare.RoomView {
	return s.updates
}

// Append sends a message through the session's device identity and refreshes
// the local view immediately instead of waiting for the next tick.
func (s *Session) Append(ctx context.Context, text string) error {
	err := s.svc.Append(ctx, s.code, s.device, text)
	if err != nil {
		return err
	}
	return s.refresh(ctx)
}

// Leave cancels the polling loop and waits for it to stop. Safe to call more
// than once.
func (s *Session) Leave() {
	s.leave.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		log.Info().Str("code", s.code).Str("device", s.device).Msg("room left")
	})
}

// refresh re-reads the raw room record and swaps the local view when the
// stored value differs from the last seen one.
func (s *Session) refresh(ctx context.Context) error {
	raw, err := s.svc.KVStorage.Get(ctx, KeyPrefix+s.code)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw == s.lastRaw {
		return nil
	}
	var record modelstorage.RoomRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return err
	}
	s.lastRaw = raw
	s.view = toView(record)
	select {
	case s.updates <- s.view:
	default:
		// replace the stale pending snapshot
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- s.view:
		default:
		}
	}
	return nil
}
