package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/config"
	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/server"
	"go.uber.org/zap"
)

var (
	configPath   = flag.String("config", os.Getenv("CONFIG_PATH"), "Path to a YAML config file")
	port         = flag.String("port", os.Getenv("PORT"), "Port to host the server on")
	frontendHost = flag.String("frontendHost", os.Getenv("FRONTEND_HOST"), "The frontend host allowed to open websockets")
	development  = flag.Bool("dev", false, "Use a human readable development logger")
)

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.ParseConfig(*configPath); err != nil {
			return nil, err
		}
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *frontendHost != "" {
		cfg.FrontendHost = *frontendHost
	}
	return cfg, cfg.Validate()
}

// checkOrigin returns a function accepting requests whose origin contains the
// frontend host.
func checkOrigin(frontendHost string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return strings.Contains(origin, frontendHost)
	}
}

func newLogger() (*zap.Logger, error) {
	if *development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	flag.Parse()
	log, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "unable to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start-up the server
	log.Info(fmt.Sprintf("Starting server on port %s", cfg.Port))
	s := server.NewServer(log, cfg, checkOrigin(cfg.FrontendHost))
	if err := s.Start(ctx); err != nil {
		log.Fatal("Server exited", zap.Error(err))
	}
	log.Info("Server stopped")
}
