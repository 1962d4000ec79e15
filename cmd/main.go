package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pozitronik/viscrapper/adapters"
	"github.com/pozitronik/viscrapper/backend"
	"github.com/pozitronik/viscrapper/engine"
	"github.com/pozitronik/viscrapper/internal/types"
	"github.com/pozitronik/viscrapper/page"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Parse command line flags
	var (
		urlFlag      = flag.String("url", "", "Product page URL (required)")
		fileFlag     = flag.String("file", "", "Extract from a saved HTML file instead of a live page")
		outputFlag   = flag.String("output", "", "Output file path (default: stdout)")
		backendFlag  = flag.String("backend", "", "Backend base URL for known-SKU checks and submission")
		submitFlag   = flag.Bool("submit", false, "Submit extracted records to the backend")
		settleDelay  = flag.Duration("settle", 150*time.Millisecond, "Wait after activating an option")
		requestDelay = flag.Duration("delay", 1*time.Second, "Delay between backend requests")
		maxRetries   = flag.Int("retries", 3, "Maximum retry attempts")
		timeout      = flag.Duration("timeout", 30*time.Second, "Request timeout")
		useBrowser   = flag.Bool("browser", true, "Use headless browser for live pages")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Validate flags
	if *urlFlag == "" {
		log.Fatal("--url flag is required")
	}
	if *submitFlag && *backendFlag == "" {
		log.Fatal("--submit requires --backend")
	}

	// Setup logging
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	// Set log level from LOG_LEVEL env if present
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Create configuration
	config := types.DefaultConfig()
	config.SettleDelay = *settleDelay
	config.RequestDelay = *requestDelay
	config.MaxRetries = *maxRetries
	config.Timeout = *timeout
	config.UseHeadlessBrowser = *useBrowser

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Resolve the store adapter from the URL
	adapter, err := adapters.ForURL(*urlFlag, config, logger)
	if err != nil {
		logger.Fatalf("No adapter for %s: %v", *urlFlag, err)
	}
	logger.Infof("Using adapter: %s", adapter.Name())

	// Open the page
	var pg types.Page
	if *fileFlag != "" {
		static, err := page.NewStaticPageFromFile(*fileFlag, *urlFlag)
		if err != nil {
			logger.Fatalf("Failed to load %s: %v", *fileFlag, err)
		}
		pg = static
	} else {
		chrome, err := page.NewChromePage(ctx, *urlFlag, config, logger)
		if err != nil {
			logger.Fatalf("Failed to open page: %v", err)
		}
		defer chrome.Close()
		pg = chrome
	}

	// Run the extraction
	startTime := time.Now()
	eng := engine.New(config, logger)
	result, err := eng.ExtractFromPage(ctx, pg, adapter)
	if err != nil {
		logger.Fatalf("Extraction failed: %v", err)
	}
	logger.Infof("Extraction completed in %v", time.Since(startTime))

	if result.NeedsRefresh {
		logger.Warn("Page changed during extraction; reload and try again")
	}
	for _, warning := range result.Warnings {
		logger.Warnf("Warning: %s", warning)
	}

	// Check the backend for already-known records and optionally submit
	if *backendFlag != "" {
		syncWithBackend(ctx, *backendFlag, config, logger, result, *submitFlag)
	}

	// Marshal results to JSON
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to marshal results: %v", err)
	}

	// Output results
	if *outputFlag != "" {
		// Write to file
		if err := os.WriteFile(*outputFlag, jsonData, 0644); err != nil {
			logger.Fatalf("Failed to write output file: %v", err)
		}
		logger.Infof("Results written to: %s", *outputFlag)
	} else {
		// Write to stdout
		fmt.Println(string(jsonData))
	}

	// Print summary
	logger.Infof("Variants extracted: %d (valid: %v, warnings: %d)",
		len(result.Data), result.IsValid, len(result.Warnings))
}

// syncWithBackend flags records the backend already holds and submits the
// rest when asked to.
func syncWithBackend(ctx context.Context, baseURL string, config *types.Config, logger types.Logger, result *types.ExtractionResult, submit bool) {
	client := backend.NewClient(baseURL, config, logger)
	defer client.Close()

	for _, variant := range result.Data {
		_, err := client.FindBySKU(ctx, variant.SKU)
		switch {
		case err == nil:
			logger.Infof("SKU %s already known to the backend, skipping", variant.SKU)
			continue
		case !errors.Is(err, backend.ErrRecordNotFound):
			logger.Warnf("Backend lookup failed for %s: %v", variant.SKU, err)
			continue
		}

		if !submit {
			logger.Infof("SKU %s is new", variant.SKU)
			continue
		}

		if err := client.Submit(ctx, variant); err != nil {
			logger.Warnf("Failed to submit %s: %v", variant.SKU, err)
			continue
		}
		logger.Infof("Submitted %s", variant.SKU)
	}
}
