// Package main is the entry point for the Fastlane server
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	fastlaneconfig "github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

func main() {
	// Initialize structured logger
	logger.Init(logger.DefaultConfig())
	log := logger.Log

	cfg, err := ParseConfig(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), fastlaneconfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
}
