package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trulyinvoice/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "trulyinvoice",
	Short: "TrulyInvoice CLI - digitize supplier invoices and export them to accounting software",
	Long: `TrulyInvoice CLI uploads supplier invoice PDFs for extraction and
converts the results into import files for Indian accounting software:
Tally voucher XML, QuickBooks IIF/CSV, Zoho Books CSV, plain CSV and
Excel workbooks.

Extraction runs through the hosted backend by default, or fully locally
with Google Document AI when credentials are configured.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to TrulyInvoice CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

// Execute runs the root command.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
