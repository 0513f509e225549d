package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trulyinvoice/internal/backend"
	"trulyinvoice/internal/config"
	"trulyinvoice/internal/extract"
	"trulyinvoice/internal/logger"
	"trulyinvoice/internal/ocr"
	"trulyinvoice/internal/store"
	"trulyinvoice/pkg/models"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [pdf-files...]",
	Short: "Upload invoice PDFs and extract their data",
	Long: `Upload one or more invoice PDFs for extraction and store the results
in the local database.

Files are processed sequentially in the given order; the batch stops at
the first failure so you can fix the problem and re-run with the rest.
A file whose upload succeeded but whose extraction failed stays stored
server-side and is recorded locally in the upload_complete state.

With --anonymous, documents are processed without an account and results
are cached locally until claimed with "trulyinvoice claim".

With --engine local, extraction runs on-device via Google Document AI,
with Cloud Vision OCR and ChatGPT filling GST fields when configured.

Required environment variables (backend engine):
  BACKEND_BASE_URLS - Comma-separated candidate API base URLs

Required environment variables (local engine):
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
  GOOGLE_CLOUD_PROJECT - Google Cloud project ID
  DOCUMENT_AI_PROCESSOR_ID - Document AI invoice processor ID
  OPENAI_API_KEY - Optional, enables GST field completion`,
	Example: `  # Upload and process through the hosted backend
  trulyinvoice upload invoice.pdf

  # Upload a batch
  trulyinvoice upload jan/*.pdf

  # Try it without an account
  trulyinvoice upload --anonymous invoice.pdf

  # Extract locally with Document AI
  trulyinvoice upload --engine local invoice.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().Bool("anonymous", false, "Process without an account, caching results for later claim")
	uploadCmd.Flags().String("engine", "backend", "Extraction engine: backend or local")
	uploadCmd.Flags().String("user", "", "User ID override (defaults to TRULYINVOICE_USER_ID)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("upload")

	anonymous, _ := cmd.Flags().GetBool("anonymous")
	engine, _ := cmd.Flags().GetString("engine")
	userFlag, _ := cmd.Flags().GetString("user")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	userID := cfg.UserID
	if userFlag != "" {
		userID = userFlag
	}

	for _, path := range args {
		if err := validateInvoicePDF(path, log); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	switch {
	case engine == "local":
		return runLocalUpload(ctx, cfg, userID, args, log)
	case anonymous:
		return runAnonymousUpload(ctx, cfg, args, log)
	default:
		return runBackendUpload(ctx, cfg, userID, args, log)
	}
}

func runBackendUpload(ctx context.Context, cfg *config.Config, userID string, paths []string, log zerolog.Logger) error {
	if err := cfg.RequireBackend(); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("a user ID is required for authenticated uploads (set TRULYINVOICE_USER_ID or use --anonymous)")
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	client := backend.NewClient(cfg.BackendBaseURLs, cfg.BackendAPIKey)
	uploader := backend.NewUploader(client, db, userID)

	results, err := uploader.UploadBatch(ctx, paths)
	printUploadResults(results)
	if err != nil {
		return handleUploadError(err, log)
	}
	fmt.Printf("\n%d file(s) processed.\n", len(results))
	return nil
}

func runAnonymousUpload(ctx context.Context, cfg *config.Config, paths []string, log zerolog.Logger) error {
	if err := cfg.RequireBackend(); err != nil {
		return err
	}

	cache := store.NewAnonCache(cfg.ClaimCacheDir)
	client := backend.NewClient(cfg.BackendBaseURLs, cfg.BackendAPIKey)

	for _, path := range paths {
		record, err := client.ProcessAnonymous(ctx, path)
		if err != nil {
			return handleUploadError(err, log)
		}
		record.SourcePath = path
		if err := cache.Put(record); err != nil {
			return err
		}
		fmt.Printf("  %s: %s from %s, total %.2f\n",
			filepath.Base(path), record.InvoiceNumber, record.VendorName, record.TotalAmount)
	}

	fmt.Printf("\n%d invoice(s) extracted anonymously.\n", len(paths))
	fmt.Println("Results are cached locally; run \"trulyinvoice claim --user <id>\" to keep them.")
	return nil
}

func runLocalUpload(ctx context.Context, cfg *config.Config, userID string, paths []string, log zerolog.Logger) error {
	if err := cfg.RequireLocalEngine(); err != nil {
		return err
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, cleanup, err := buildLocalEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, path := range paths {
		openFile := func() (io.ReadCloser, error) { return os.Open(path) }
		record, err := engine.ExtractFile(ctx, openFile)
		if err != nil {
			return fmt.Errorf("extract %s: %w", path, err)
		}
		record.SourcePath = path
		record.UserID = userID
		if err := db.Save(ctx, record); err != nil {
			return err
		}
		fmt.Printf("  %s: %s from %s, total %.2f\n",
			filepath.Base(path), record.InvoiceNumber, record.VendorName, record.TotalAmount)
	}

	fmt.Printf("\n%d file(s) extracted locally.\n", len(paths))
	return nil
}

func buildLocalEngine(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*extract.Engine, func(), error) {
	extractor, err := extract.NewDocumentAIExtractor(ctx, extract.DocumentAIConfig{
		ProjectID:   cfg.GoogleCloudProject,
		Location:    cfg.GoogleCloudLocation,
		ProcessorID: cfg.DocumentAIProcessorID,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { extractor.Close() }

	var ocrService ocr.Service
	var completer extract.Completer
	if cfg.OpenAIAPIKey != "" {
		ocrService, err = ocr.NewGoogleVisionService(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Vision OCR unavailable, GST field completion disabled")
		} else {
			completer, err = extract.NewOpenAICompleter(cfg.OpenAIAPIKey, extract.DefaultCompletionConfig)
			if err != nil {
				return nil, cleanup, err
			}
		}
	}

	return extract.NewEngine(extractor, ocrService, completer), cleanup, nil
}

func printUploadResults(results []backend.UploadResult) {
	for _, result := range results {
		name := filepath.Base(result.Path)
		switch result.Status {
		case models.StatusProcessed:
			fmt.Printf("  %s: %s from %s, total %.2f\n",
				name, result.Record.InvoiceNumber, result.Record.VendorName, result.Record.TotalAmount)
		case models.StatusUploadComplete:
			fmt.Printf("  %s: uploaded, extraction failed (will retry on next run)\n", name)
		default:
			fmt.Printf("  %s: %s\n", name, result.Status)
		}
	}
}

func handleUploadError(err error, log zerolog.Logger) error {
	var quotaErr *backend.QuotaExceededError
	if errors.As(err, &quotaErr) {
		log.Warn().Int("used", quotaErr.Used).Int("limit", quotaErr.Limit).Msg("Quota exhausted")
		if quotaErr.Limit > 0 {
			return fmt.Errorf("monthly page quota exhausted (%d/%d used); upgrade your plan or wait for the next cycle",
				quotaErr.Used, quotaErr.Limit)
		}
		return fmt.Errorf("monthly page quota exhausted; upgrade your plan or wait for the next cycle")
	}
	return err
}

// validateInvoicePDF checks the file exists, is readable and looks like a PDF.
func validateInvoicePDF(path string, log zerolog.Logger) (err error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a PDF file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		log.Warn().Str("file", path).Msg("File does not have a .pdf extension")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open file %s: %w", path, err)
	}
	defer file.Close()

	header := make([]byte, 4)
	if _, err := io.ReadFull(file, header); err != nil || string(header) != "%PDF" {
		return fmt.Errorf("%s is not a valid PDF document", path)
	}
	return nil
}
