package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pozitronik/viscrapper/backend"
	"github.com/pozitronik/viscrapper/config"
	"github.com/pozitronik/viscrapper/engine"
	"github.com/pozitronik/viscrapper/server"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logging
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	// LOG_LEVEL env overrides the configured level
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	}

	logger.Infof("Starting viscrapper API v1.0.0")
	logger.Infof("Environment: %s", cfg.Server.Environment)
	logger.Infof("Port: %s", cfg.Server.Port)

	engineConfig := cfg.EngineConfig()

	// Pick the record store: a remote backend when configured, in-memory
	// otherwise.
	var store backend.Store
	if cfg.Backend.BaseURL != "" {
		client := backend.NewClient(cfg.Backend.BaseURL, engineConfig, logger)
		defer client.Close()
		store = client
		logger.Infof("Record store: %s", cfg.Backend.BaseURL)
	} else {
		store = backend.NewMemoryStore()
		logger.Infof("Record store: in-memory")
	}

	// Create HTTP handler with dependencies
	handler := server.NewHandler(engine.New(engineConfig, logger), store, engineConfig, logger)

	// Setup router
	router := server.SetupRouter(cfg, handler, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Infof("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
