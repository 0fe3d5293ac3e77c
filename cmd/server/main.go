package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/jwaldner/fdmc/fdmc_lib"
	"github.com/jwaldner/fdmc/internal/audit"
	"github.com/jwaldner/fdmc/internal/config"
	"github.com/jwaldner/fdmc/internal/handlers"
	"github.com/jwaldner/fdmc/internal/logger"
	"github.com/jwaldner/fdmc/internal/metrics"
)

func main() {
	cfg, err := config.LoadFrom(config.DefaultPath)
	if err != nil {
		log.Printf("⚠️  %v (continuing with environment defaults)", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize proper logging with config level and file path
	if err := logger.InitWithConfig(cfg.Logging.LogLevel, cfg.Logging.LogFile); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Close()
	logger.Always.Printf("🚀 fdmc pricing server starting - Port: %s", cfg.Port)

	if cfg.Logging.LogLevel == "verbose" {
		fmt.Printf("⚠️  VERBOSE LOGGING ENABLED - every request and run will be logged to %s\n", cfg.Logging.LogFile)
	}

	m := metrics.New("fdmc")
	if err := m.Register(); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}
	opts := []fdmc.Option{fdmc.WithMetrics(m)}

	if cfg.Audit.Enabled {
		recorder, err := audit.NewRecorder(cfg.Audit.Dir, cfg.Audit.FilenameFormat)
		if err != nil {
			log.Fatalf("Failed to start audit recorder: %v", err)
		}
		defer recorder.Close()
		opts = append(opts, fdmc.WithAudit(recorder))
		logger.Always.Printf("📝 AUDIT: writing run files to %s", cfg.Audit.Dir)
	}

	engine := fdmc.NewEngine(cfg, opts...)
	defer engine.Close()
	logger.Always.Printf("🔧 ACTIVE MODE: %s (%d workers)", engine.Mode(), engine.Workers())

	r := handlers.NewRouter(handlers.NewPricingHandler(cfg, engine), m)

	// Start server
	fmt.Printf("🌐 Server starting on http://localhost:%s\n", cfg.Port)
	logger.Always.Printf("🌐 Server starting on http://localhost:%s", cfg.Port)

	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		logger.Error.Printf("Server failed: %v", err)
		log.Fatal("Server failed to start:", err)
	}
}
