package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"trulyinvoice/cmd"
	"trulyinvoice/internal/config"
	"trulyinvoice/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	mainLog := logger.WithComponent("main")
	mainLog.Info().Msg("Starting TrulyInvoice CLI")

	cmd.Execute()

	mainLog.Info().Msg("TrulyInvoice CLI shutdown")
	os.Exit(0)
}
