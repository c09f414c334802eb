package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MKhiriev/reflog-sync/internal/app"
	"github.com/MKhiriev/reflog-sync/internal/client"
	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
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

	cfg, err := config.GetClientConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, app.MsgConfigError, err)
		os.Exit(2)
	}

	log := logger.NewClientLogger("reflog-agent", cfg.App.LogFile)

	ctx := context.Background()
	agent, err := client.NewApp(ctx, cfg, os.Stdout, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	if err = agent.Run(ctx); err != nil {
		log.Error().Err(err).Msg("client run error")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
