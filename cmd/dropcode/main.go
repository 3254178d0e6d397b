package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vmartynov/vm_go_code_drop/internal/api/rest"
	"github.com/vmartynov/vm_go_code_drop/internal/config"
	roomService "github.com/vmartynov/vm_go_code_drop/internal/service/room/v1"
	shareService "github.com/vmartynov/vm_go_code_drop/internal/service/share/v1"
	storage "github.com/vmartynov/vm_go_code_drop/internal/storage/v1"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/infile"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/inmemory"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/inpsql"
	"github.com/vmartynov/vm_go_code_drop/internal/storage/v1/inremote"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// add a waiting group
	wg := &sync.WaitGroup{}
	// get configuration
	cfg, err := config.NewDefaultConfiguration()
	if err != nil {
		log.Fatal().Err(err).Msg("could not assemble configuration")
	}
	cfg.ParseFlags()
	setupLogger(cfg.ServerConfig.LogLevel)
	// initialize storage, switch between substrates by configuration
	var storageInit storage.KVStorage
	var errInit error
	switch {
	case cfg.StorageConfig.DatabaseDSN != "":
		wg.Add(1)
		storageInit, errInit = inpsql.InitStorage(ctx, wg, cfg.StorageConfig)
	case cfg.StorageConfig.RemoteAPIAddress != "":
		wg.Add(1)
		storageInit, errInit = inremote.InitStorage(ctx, wg, cfg.StorageConfig)
	case cfg.StorageConfig.FileStoragePath != "":
		wg.Add(1)
		storageInit, errInit = infile.InitStorage(ctx, wg, cfg.StorageConfig)
	default:
		storageInit = inmemory.InitStorage()
	}
	if errInit != nil {
		log.Fatal().Err(errInit).Msg("could not initialize storage")
	}
	// initialize services
	share, err := shareService.InitShare(cfg.ServiceConfig, storageInit)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize share service")
	}
	room, err := roomService.InitRoom(cfg.ServiceConfig, storageInit)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize room service")
	}
	// start the expiry sweeper
	wg.Add(1)
	share.StartSweeper(ctx, wg)
	// initialize server
	server, err := rest.InitServer(ctx, cfg, storageInit, share, room)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize server")
	}
	// set a listener for os.Signal
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		log.Info().Msg("server shutdown attempted")
		ctxTO, cancelTO := context.WithTimeout(ctx, 5*time.Second)
		defer cancelTO()
		if err := server.Shutdown(ctxTO); err != nil {
			log.Fatal().Err(err).Msg("server shutdown failed")
		}
		cancel()
	}()
	// start up the server
	log.Info().Str("address", cfg.ServerConfig.ServerAddress).Msg("server start attempted")
	if cfg.ServerConfig.EnableHTTPS {
		err = server.ListenAndServeTLS("", "")
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
	// wait for goroutines in InitStorage and StartSweeper to finish before exiting
	wg.Wait()
	log.Info().Msg("server shutdown succeeded")
}

// setupLogger configures the global zerolog logger.
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
