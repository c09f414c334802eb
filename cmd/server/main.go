package main

import (
	"context"
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/handler"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/server"
	"github.com/MKhiriev/reflog-sync/internal/service"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/internal/workers"
	"github.com/MKhiriev/reflog-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	build := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	fmt.Println(build)

	ctx := context.Background()
	log := logger.NewLogger("reflog-server")

	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	storages, err := store.NewStorages(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}
	defer storages.Close()

	services, err := service.NewServices(storages, cfg, build, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	handlers, err := handler.NewHandlers(services, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	jobs, err := workers.NewWorkers(services, cfg.Sync, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating workers")
	}

	srv, err := server.NewServer(handlers, jobs, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	if err = srv.RunServer(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
}
