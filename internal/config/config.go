package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trulyinvoice/internal/logger"
)

// Config carries environment-driven settings. Individual services validate
// the subset they need; only a handful of values are required globally.
type Config struct {
	// Processing backend
	BackendBaseURLs []string // candidate base URLs, tried in order
	BackendAPIKey   string
	UserID          string // authenticated user for uploads; empty means anonymous

	// Local store
	DatabasePath  string
	DocumentsDir  string // uploaded source files
	ClaimCacheDir string // anonymous results awaiting claim

	// Google Cloud (local extraction engine)
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// OpenAI (extraction completion)
	OpenAIAPIKey string

	// Google Sheets (review export)
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from the environment. It never fails on missing
// service credentials; those are checked by the service that needs them.
func Load() (*Config, error) {
	dataDir := getEnv("TRULYINVOICE_DATA_DIR", defaultDataDir())

	config := &Config{
		BackendBaseURLs:       splitList(getEnv("BACKEND_BASE_URLS", "")),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		UserID:                getEnv("TRULYINVOICE_USER_ID", ""),
		DatabasePath:          getEnv("TRULYINVOICE_DB_PATH", filepath.Join(dataDir, "invoices.db")),
		DocumentsDir:          getEnv("TRULYINVOICE_DOCUMENTS_DIR", filepath.Join(dataDir, "documents")),
		ClaimCacheDir:         getEnv("TRULYINVOICE_CLAIM_CACHE_DIR", filepath.Join(dataDir, "claim")),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Invoices"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// RequireBackend validates the settings needed to talk to the processing API.
func (c *Config) RequireBackend() error {
	if len(c.BackendBaseURLs) == 0 {
		return fmt.Errorf("BACKEND_BASE_URLS is required (comma-separated list of API base URLs)")
	}
	return nil
}

// RequireLocalEngine validates the settings needed for on-device extraction.
func (c *Config) RequireLocalEngine() error {
	if c.GoogleCloudProject == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the local extraction engine")
	}
	if c.DocumentAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the local extraction engine")
	}
	return nil
}

// RequireSheets validates the settings needed for the review-sheet export.
func (c *Config) RequireSheets() error {
	if c.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required for the sheets export")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trulyinvoice"
	}
	return filepath.Join(home, ".trulyinvoice")
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
