package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trulyinvoice/internal/backend"
	"trulyinvoice/internal/config"
	"trulyinvoice/internal/export"
	"trulyinvoice/internal/logger"
	"trulyinvoice/internal/sheets"
	"trulyinvoice/internal/store"
	"trulyinvoice/pkg/models"
)

var exportCmd = &cobra.Command{
	Use:   "export [format]",
	Short: "Export stored invoices to an accounting import file",
	Long: `Export stored invoices as an import file for accounting software.

Formats:
  csv             Plain CSV, one row per invoice (never blocked by validation)
  tally           Tally voucher XML with auto-created ledger masters
  quickbooks      Prompts for QuickBooks Desktop (IIF) or Online (CSV)
  quickbooks-iif  QuickBooks Desktop IIF
  quickbooks-csv  QuickBooks Online CSV
  zoho            Zoho Books CSV
  excel           Excel workbook (--template simple or accountant)
  sheets          Append rows to a Google Sheet for review

Tally, QuickBooks and Zoho exports require every selected invoice to
have an invoice number, vendor name, invoice date and positive total.
Tally exports additionally warn about missing GSTIN, place of supply or
HSN/SAC codes and ask for confirmation before defaulting them.`,
	Example: `  # Export everything as CSV
  trulyinvoice export csv

  # Tally XML for two invoices, skipping the warning prompt
  trulyinvoice export tally --ids 4f1c...,9a2b... --yes

  # Accountant-ready Excel workbook
  trulyinvoice export excel --template accountant

  # Excel generated by the backend instead of locally
  trulyinvoice export excel --remote

  # Push to the review sheet
  trulyinvoice export sheets`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("ids", "", "Comma-separated invoice IDs (default: all stored invoices)")
	exportCmd.Flags().StringP("output", "o", ".", "Output directory for the generated file")
	exportCmd.Flags().BoolP("yes", "y", false, "Proceed without confirming validation warnings")
	exportCmd.Flags().String("template", "simple", "Excel template: simple or accountant")
	exportCmd.Flags().Bool("remote", false, "Generate Excel through the backend instead of locally")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export-cmd")

	idsFlag, _ := cmd.Flags().GetString("ids")
	outputDir, _ := cmd.Flags().GetString("output")
	yes, _ := cmd.Flags().GetBool("yes")
	templateFlag, _ := cmd.Flags().GetString("template")
	remote, _ := cmd.Flags().GetBool("remote")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	invoices, err := selectInvoices(ctx, db, cfg.UserID, idsFlag)
	if err != nil {
		return err
	}

	service := export.NewService(warningConfirmer(yes), stdinFormatChooser{})

	format, err := resolveFormat(ctx, service, args[0])
	if err != nil {
		return err
	}

	switch {
	case format == export.FormatSheets:
		return runSheetsExport(ctx, cfg, invoices)
	case format == export.FormatExcel && remote:
		return runRemoteExcelExport(ctx, cfg, invoices, templateFlag, outputDir)
	case format == export.FormatExcel:
		return runLocalExcelExport(invoices, templateFlag, outputDir)
	}

	file, summary, err := service.Export(ctx, invoices, format)
	if err != nil {
		return handleExportError(err)
	}

	path := filepath.Join(outputDir, file.Name)
	if err := os.WriteFile(path, file.Content, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}

	log.Info().Str("file", path).Int("invoices", summary.Invoices).Msg("Export written")
	printSummary(path, format, summary)
	return nil
}

// resolveFormat parses the format argument, prompting for the QuickBooks
// sub-format when the user asked for plain "quickbooks".
func resolveFormat(ctx context.Context, service *export.Service, name string) (export.Format, error) {
	if name == "quickbooks" {
		return service.ResolveQuickBooks(ctx)
	}
	return export.ParseFormat(name)
}

func selectInvoices(ctx context.Context, db *store.Store, userID, idsFlag string) ([]models.InvoiceRecord, error) {
	if idsFlag != "" {
		var ids []string
		for _, id := range strings.Split(idsFlag, ",") {
			if trimmed := strings.TrimSpace(id); trimmed != "" {
				ids = append(ids, trimmed)
			}
		}
		return db.GetMany(ctx, ids)
	}
	return db.List(ctx, store.ListFilter{UserID: userID})
}

func runSheetsExport(ctx context.Context, cfg *config.Config, invoices []models.InvoiceRecord) error {
	if len(invoices) == 0 {
		return export.ErrNoInvoices
	}
	if err := cfg.RequireSheets(); err != nil {
		return err
	}

	writer, err := sheets.NewService(ctx, cfg.GoogleSheetURL)
	if err != nil {
		return err
	}
	if err := writer.WriteInvoices(ctx, invoices, cfg.GoogleSheetWorksheet); err != nil {
		return err
	}
	fmt.Printf("%d invoice(s) appended to the review sheet.\n", len(invoices))
	return nil
}

func runLocalExcelExport(invoices []models.InvoiceRecord, templateFlag, outputDir string) error {
	if len(invoices) == 0 {
		return export.ErrNoInvoices
	}
	template, err := export.ParseExcelTemplate(templateFlag)
	if err != nil {
		return err
	}

	content, err := export.BuildExcel(invoices, template)
	if err != nil {
		return err
	}
	path := filepath.Join(outputDir, fmt.Sprintf("invoices_%s.xlsx", time.Now().Format("2006-01-02")))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Printf("Exported %d invoice(s) to %s\n", len(invoices), path)
	return nil
}

func runRemoteExcelExport(ctx context.Context, cfg *config.Config, invoices []models.InvoiceRecord, templateFlag, outputDir string) error {
	if len(invoices) == 0 {
		return export.ErrNoInvoices
	}
	if err := cfg.RequireBackend(); err != nil {
		return err
	}
	template, err := export.ParseExcelTemplate(templateFlag)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(invoices))
	for i := range invoices {
		ids = append(ids, invoices[i].ID)
	}

	client := backend.NewClient(cfg.BackendBaseURLs, cfg.BackendAPIKey)
	content, err := client.ExportExcel(ctx, ids, string(template))
	if err != nil {
		return err
	}
	path := filepath.Join(outputDir, fmt.Sprintf("invoices_%s.xlsx", time.Now().Format("2006-01-02")))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Printf("Exported %d invoice(s) to %s\n", len(invoices), path)
	return nil
}

// warningConfirmer builds the soft-warning gate: --yes accepts everything,
// otherwise the user is prompted on stdin.
func warningConfirmer(yes bool) export.Confirmer {
	return export.ConfirmerFunc(func(ctx context.Context, warnings []string) (bool, error) {
		fmt.Println("Validation warnings:")
		for _, warning := range warnings {
			fmt.Printf("  - %s\n", warning)
		}
		if yes {
			fmt.Println("Proceeding with defaults (--yes).")
			return true, nil
		}
		fmt.Print("Proceed with defaulted values? [y/N]: ")
		answer, err := readLine()
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	})
}

// stdinFormatChooser prompts for the QuickBooks Desktop/Online choice.
type stdinFormatChooser struct{}

func (stdinFormatChooser) ChooseQuickBooksFormat(ctx context.Context) (export.Format, bool, error) {
	fmt.Println("QuickBooks target:")
	fmt.Println("  1) Desktop (IIF)")
	fmt.Println("  2) Online (CSV)")
	fmt.Print("Choose [1/2, empty to cancel]: ")
	answer, err := readLine()
	if err != nil {
		return "", false, err
	}
	switch strings.TrimSpace(answer) {
	case "1":
		return export.FormatQuickBooksIIF, true, nil
	case "2":
		return export.FormatQuickBooksCSV, true, nil
	default:
		return "", false, nil
	}
}

func readLine() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	return reader.ReadString('\n')
}

func handleExportError(err error) error {
	if vErr, ok := export.AsValidationFailed(err); ok {
		fmt.Fprintln(os.Stderr, "Export blocked; fix these invoices first:")
		for _, msg := range vErr.Errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", msg)
		}
		return fmt.Errorf("%s export blocked by %d validation error(s)", vErr.Format, len(vErr.Errors))
	}
	return err
}

func printSummary(path string, format export.Format, summary *export.Summary) {
	fmt.Printf("Exported %d invoice(s) to %s\n", summary.Invoices, path)
	if format == export.FormatTally {
		fmt.Printf("  Vouchers: %d\n", summary.Vouchers)
		fmt.Printf("  Party ledgers: %d\n", summary.PartyLedgers)
		fmt.Printf("  GST ledgers: %d\n", summary.GSTLedgers)
		fmt.Printf("  Expense ledgers: %d\n", summary.ExpenseLedgers)
	}
	if summary.Warnings > 0 {
		fmt.Printf("  Warnings accepted: %d\n", summary.Warnings)
	}
}
