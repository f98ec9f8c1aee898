package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/ToadySP/MountainOfSpirits/internal/adapters/http"
	"github.com/ToadySP/MountainOfSpirits/internal/app"
	"github.com/ToadySP/MountainOfSpirits/internal/config"
	"github.com/ToadySP/MountainOfSpirits/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// A broken topology is not recoverable; refuse to boot.
	seeds, err := config.LoadAreas(cfg.AreasPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.AreasPath).Msg("failed to load area topology")
	}
	graph, err := core.NewGraph(seeds)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build area graph")
	}

	orch := app.NewOrchestrator(graph, core.NewEngine(graph), app.NewRegistry(), app.NewAudit())

	r := router.SetupRouter(ctx, cfg, orch)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Int("areas", len(graph.Areas())).Msg("Spirits server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
