// Package handlers provides http.HandlerFunc handler functions to be used for endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog/log"

	"github.com/vmartynov/vm_go_code_drop/internal/api/rest/middleware"
	"github.com/vmartynov/vm_go_code_drop/internal/api/rest/modeldto"
	serviceErrors "github.com/vmartynov/vm_go_code_drop/internal/service/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/service/room"
	"github.com/vmartynov/vm_go_code_drop/internal/service/share"
	storage "github.com/vmartynov/vm_go_code_drop/internal/storage/v1"
	storageErrors "github.com/vmartynov/vm_go_code_drop/internal/storage/v1/errors"
)

// requestTimeout bounds storage operations behind every endpoint.
const requestTimeout = 500 * time.Millisecond

// DropHandler defines data structure handling and provides support for adding new implementations.
type DropHandler struct {
	shareProcessor share.Processor
	roomProcessor  room.Processor
	cookieHandler  *middleware.CookieHandler
	pinger         storage.Pinger
}

// InitDropHandler initializes a DropHandler object and sets its attributes.
func InitDropHandler(shareProcessor share.Processor, roomProcessor room.Processor, cookieHandler *middleware.CookieHandler, pinger storage.Pinger) (*DropHandler, error) {
	if shareProcessor == nil || roomProcessor == nil {
		return nil, fmt.Errorf("nil service was passed to drop handler initializer")
	}
	return &DropHandler{
		shareProcessor: shareProcessor,
		roomProcessor:  roomProcessor,
		cookieHandler:  cookieHandler,
		pinger:         pinger,
	}, nil
}

// HandlePostFile stores an uploaded file payload and responds with its sharing code.
func (h *DropHandler) HandlePostFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		b, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var post modeldto.RequestFile
		err = json.Unmarshal(b, &post)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug().Str("fileName", post.FileName).Msg("file POST request detected")
		code, err := h.shareProcessor.Upload(ctx, post.FileName, post.Payload, time.Duration(post.TTLSeconds)*time.Second)
		if err != nil {
			h.respondError(w, err, "HandlePostFile")
			return
		}
		h.respondJSON(w, http.StatusCreated, modeldto.ResponseCode{Code: code})
	}
}

// HandleGetFile hands out a stored file exactly once.
func (h *DropHandler) HandleGetFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		code := chi.URLParam(r, "fileID")
		log.Debug().Str("code", code).Msg("file GET request detected")
		file, err := h.shareProcessor.Download(ctx, code)
		if err != nil {
			h.respondError(w, err, "HandleGetFile")
			return
		}
		h.respondJSON(w, http.StatusOK, modeldto.ResponseFile{
			FileName:  file.FileName,
			Payload:   file.Payload,
			CreatedAt: file.CreatedAt.Unix(),
		})
	}
}

// HandlePostRoom creates a room and responds with its sharing code.
func (h *DropHandler) HandlePostRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		device, err := h.cookieHandler.DeviceID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		code, err := h.roomProcessor.Create(ctx, device)
		if err != nil {
			h.respondError(w, err, "HandlePostRoom")
			return
		}
		h.respondJSON(w, http.StatusCreated, modeldto.ResponseCode{Code: code})
	}
}

// HandleGetRoom returns a room snapshot; clients poll this endpoint to converge.
func (h *DropHandler) HandleGetRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		code := chi.URLParam(r, "roomID")
		view, err := h.roomProcessor.Peek(ctx, code)
		if err != nil {
			h.respondError(w, err, "HandleGetRoom")
			return
		}
		messages := make([]modeldto.ResponseMessage, 0, len(view.Messages))
		for _, m := range view.Messages {
			messages = append(messages, modeldto.ResponseMessage{
				Device: m.Device,
				Text:   m.Text,
				SentAt: m.SentAt.Unix(),
			})
		}
		h.respondJSON(w, http.StatusOK, modeldto.ResponseRoom{
			Code:         view.Code,
			Messages:     messages,
			Participants: view.Participants,
			CreatedAt:    view.CreatedAt.Unix(),
		})
	}
}

// HandlePostMessage appends a message to a room on behalf of the request's device.
func (h *DropHandler) HandlePostMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		code := chi.URLParam(r, "roomID")
		device, err := h.cookieHandler.DeviceID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		b, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var post modeldto.RequestMessage
		err = json.Unmarshal(b, &post)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if post.Text == "" {
			http.Error(w, "empty message text", http.StatusBadRequest)
			return
		}
		err = h.roomProcessor.Append(ctx, code, device, post.Text)
		if err != nil {
			h.respondError(w, err, "HandlePostMessage")
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

// HandleGetStats reports the number of live file records and rooms.
func (h *DropHandler) HandleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		files, err := h.shareProcessor.Count(ctx)
		if err != nil {
			h.respondError(w, err, "HandleGetStats")
			return
		}
		rooms, err := h.roomProcessor.Count(ctx)
		if err != nil {
			h.respondError(w, err, "HandleGetStats")
			return
		}
		h.respondJSON(w, http.StatusOK, modeldto.ResponseStats{Files: files, Rooms: rooms})
	}
}

// HandlePing reports storage availability.
func (h *DropHandler) HandlePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.pinger == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		err := h.pinger.Ping()
		if err != nil {
			log.Warn().Err(err).Msg("HandlePing failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// respondJSON serializes a response structure and sends it.
func (h *DropHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	resBody, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(resBody)
}

// respondError maps service and storage errors onto status codes. Every
// failure collapses to a displayed string, no retries are performed.
func (h *DropHandler) respondError(w http.ResponseWriter, err error, op string) {
	var (
		timeoutError     *storageErrors.ContextTimeoutExceededError
		notFoundError    *storageErrors.NotFoundError
		invalidCodeError *serviceErrors.InvalidCodeError
		exhaustedError   *serviceErrors.CodeSpaceExhaustedError
		remoteAPIError   *storageErrors.RemoteAPIError
	)
	switch {
	case errors.As(err, &timeoutError):
		log.Warn().Err(err).Str("handler", op).Msg("request timed out")
		w.WriteHeader(http.StatusGatewayTimeout)
	case errors.As(err, &notFoundError):
		log.Debug().Err(err).Str("handler", op).Msg("record not found")
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &invalidCodeError):
		log.Debug().Err(err).Str("handler", op).Msg("invalid code")
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &exhaustedError):
		log.Error().Err(err).Str("handler", op).Msg("code space exhausted")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &remoteAPIError):
		log.Warn().Err(err).Str("handler", op).Msg("remote storage failure")
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		log.Warn().Err(err).Str("handler", op).Msg("request failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
