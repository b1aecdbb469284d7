package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benmeehan/herd-proxy/internal/service_registry"
	"github.com/benmeehan/herd-proxy/internal/utils"
	"github.com/benmeehan/herd-proxy/pkg/file"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the herd configuration file")
	envFile := flag.String("env", ".env", "optional .env file with secrets")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <server-id>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	serverID := flag.Arg(0)

	// Bootstrap logger until the configured level is known
	log := zerolog.New(os.Stdout).With().Timestamp().Str("server", serverID).Logger()

	// Load configuration from file
	fileClient := file.NewFileService()
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}
	if err := config.ApplyEnvOverrides(fileClient, *envFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply environment overrides")
	}
	if err := config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log = newLogger(serverID, config.Log.Level, config.Log.Pretty)

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(log)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config, serverID); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-stopCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down herd server")

	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services failed to stop cleanly")
		os.Exit(1)
	}
	log.Info().Msg("Herd server stopped")
}

func newLogger(serverID, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	logger = logger.Level(lvl).With().Timestamp().Str("server", serverID).Logger()
	if err != nil {
		logger.Warn().Str("level", level).Msg("Unknown log level, using info")
	}
	return logger
}
