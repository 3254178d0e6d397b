// Package rest provides functionality for initializing a server for the code drop service.
package rest

import (
	"context"
	"crypto/tls"
	"expvar"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vmartynov/vm_go_code_drop/internal/api/rest/handlers"
	"github.com/vmartynov/vm_go_code_drop/internal/api/rest/middleware"
	"github.com/vmartynov/vm_go_code_drop/internal/config"
	roomService "github.com/vmartynov/vm_go_code_drop/internal/service/room/v1"
	secretaryService "github.com/vmartynov/vm_go_code_drop/internal/service/secretary/v1"
	shareService "github.com/vmartynov/vm_go_code_drop/internal/service/share/v1"
	storage "github.com/vmartynov/vm_go_code_drop/internal/storage/v1"
)

var (
	serverStart = time.Now()
)

// uptime returns time in seconds since the server start-up.
func uptime() interface{} {
	return int64(time.Since(serverStart).Seconds())
}

// InitServer returns a http.Server object ready to be listening and serving.
func InitServer(ctx context.Context, cfg *config.Config, st storage.KVStorage, share *shareService.Share, room *roomService.Room) (server *http.Server, err error) {
	secretary, err := secretaryService.NewSecretaryService(cfg.SecretConfig)
	if err != nil {
		return nil, err
	}
	cookieHandler, err := middleware.NewCookieHandler(secretary, cfg.SecretConfig)
	if err != nil {
		return nil, err
	}
	dropHandler, err := handlers.InitDropHandler(share, room, cookieHandler, st)
	if err != nil {
		return nil, err
	}
	trustedNetHandler := middleware.NewTrustedNetHandler(cfg.ServerConfig)

	r := chi.NewRouter()
	r.Use(cookieHandler.CookieHandle)
	r.Use(middleware.CompressHandle)
	r.Use(middleware.DecompressHandle)
	r.Post("/api/files", dropHandler.HandlePostFile())
	r.Get("/api/files/{fileID}", dropHandler.HandleGetFile())
	r.Post("/api/rooms", dropHandler.HandlePostRoom())
	r.Get("/api/rooms/{roomID}", dropHandler.HandleGetRoom())
	r.Post("/api/rooms/{roomID}/messages", dropHandler.HandlePostMessage())
	r.Get("/ping", dropHandler.HandlePing())
	r.Route("/api/internal", func(r chi.Router) {
		r.Use(trustedNetHandler.TrustedNetworkHandler)
		r.Get("/stats", dropHandler.HandleGetStats())
	})
	r.Mount("/debug", chiMiddleware.Profiler()) // see https://github.com/go-chi/chi/blob/master/middleware/profiler.go
	expvar.Publish("system.uptime", expvar.Func(uptime))

	srv := &http.Server{
		Addr:         cfg.ServerConfig.ServerAddress,
		Handler:      r,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	if cfg.ServerConfig.EnableHTTPS {
		manager := &autocert.Manager{
			Prompt: autocert.AcceptTOS,
			Cache:  autocert.DirCache("cache-dir"),
		}
		srv.TLSConfig = &tls.Config{GetCertificate: manager.GetCertificate}
	}
	return srv, nil
}
