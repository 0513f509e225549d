package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trulyinvoice/internal/config"
	"trulyinvoice/internal/logger"
	"trulyinvoice/internal/store"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [invoice-ids...]",
	Short: "Delete stored invoices",
	Long: `Delete invoices from the local database.

The source document file is removed too when it still exists; a missing
file is not an error.`,
	Example: `  trulyinvoice delete 4f1c0d2e-...
  trulyinvoice delete 4f1c0d2e-... 9a2b11ff-...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("delete")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, id := range args {
		if err := db.Delete(ctx, id); err != nil {
			return err
		}
		log.Info().Str("invoice_id", id).Msg("Invoice deleted")
		fmt.Printf("  deleted %s\n", id)
	}
	fmt.Printf("\n%d invoice(s) deleted.\n", len(args))
	return nil
}
