package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trulyinvoice/internal/config"
	"trulyinvoice/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored invoices",
	Long: `List invoices in the local database, newest first.

The ID column is what the export and delete commands take.`,
	Example: `  # All invoices
  trulyinvoice list

  # Only failed extractions, at most 10
  trulyinvoice list --status upload_complete --limit 10

  # Narrow by vendor
  trulyinvoice list --vendor "acme"

  # January's unpaid bills
  trulyinvoice list --from 2024-01-01 --to 2024-01-31 --paid Unpaid`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("status", "", "Filter by document status")
	listCmd.Flags().String("vendor", "", "Filter by vendor name substring")
	listCmd.Flags().String("from", "", "Only invoices dated on or after this date (YYYY-MM-DD)")
	listCmd.Flags().String("to", "", "Only invoices dated on or before this date (YYYY-MM-DD)")
	listCmd.Flags().String("paid", "", "Filter by payment status (e.g. Paid, Unpaid)")
	listCmd.Flags().Int("limit", 0, "Maximum number of rows (0 = all)")
}

func runList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	vendor, _ := cmd.Flags().GetString("vendor")
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	paid, _ := cmd.Flags().GetString("paid")
	limit, _ := cmd.Flags().GetInt("limit")

	from, err := parseDateFlag("from", fromFlag)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", toFlag)
	if err != nil {
		return err
	}

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

	invoices, err := db.List(ctx, store.ListFilter{
		UserID:        cfg.UserID,
		Status:        status,
		Vendor:        vendor,
		PaymentStatus: paid,
		From:          from,
		To:            to,
		Limit:         limit,
	})
	if err != nil {
		return err
	}
	if len(invoices) == 0 {
		fmt.Println("No invoices stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINVOICE\tVENDOR\tDATE\tTOTAL\tGSTIN\tSTATUS")
	for i := range invoices {
		inv := &invoices[i]
		date := ""
		if inv.InvoiceDate != nil {
			date = inv.InvoiceDate.Format("02/01/2006")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			inv.ID, inv.InvoiceNumber, inv.VendorName, date, inv.TotalAmount, inv.GSTIN, inv.DocumentStatus)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d invoice(s)\n", len(invoices))
	return nil
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q, expected YYYY-MM-DD", name, value)
	}
	return &t, nil
}
