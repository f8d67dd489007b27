// Package main provides the grid query HTTP server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go.ngs.io/climate-grid/internal/config"
	"go.ngs.io/climate-grid/internal/domain"
	httpHandler "go.ngs.io/climate-grid/internal/http"
	"go.ngs.io/climate-grid/internal/observability"
	"go.ngs.io/climate-grid/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("climate-grid version %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting grid API server",
		"port", cfg.Port,
		"grid_data_dir", cfg.GridDataDir,
		"store_acquire_timeout", cfg.StoreAcquireTimeout.String(),
	)

	metrics := observability.NewMetrics()
	query := usecase.NewGridQuery(cfg.GridDataDir, domain.IEMRE(), cfg.StoreAcquireTimeout)

	// Setup router.
	router := httpHandler.SetupRouter(query, cfg.AllowedOrigins, metrics.Registry())

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("server listening", "addr", addr, "health", fmt.Sprintf("http://localhost:%s/health", cfg.Port))
	if err := router.Run(addr); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Climate Grid API Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  climate-grid [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  GRID_DATA_DIR           Grid store directory (default: ./data/iemre)")
	fmt.Println("  STORE_ACQUIRE_TIMEOUT   Store lock wait (default: 5m)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  LOG_LEVEL               debug, info, warn or error (default: info)")
	fmt.Println("  LOG_FORMAT              json or text (default: json)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  climate-grid")
	fmt.Println()
	fmt.Println("  # Serve a different store directory")
	fmt.Println("  GRID_DATA_DIR=/mnt/iemre PORT=3000 climate-grid")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                    Health check")
	fmt.Println("  GET /metrics                   Prometheus metrics")
	fmt.Println("  GET /v1/grid/cell              Grid cell of a point")
	fmt.Println("  GET /v1/grid/value             Stored value at a point and time")
	fmt.Println("  GET /v1/grid/coverage          Coverage flag of a point")
	fmt.Println()
}
