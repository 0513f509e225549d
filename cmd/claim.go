package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trulyinvoice/internal/config"
	"trulyinvoice/internal/store"
	"trulyinvoice/pkg/models"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim anonymously processed invoices into an account",
	Long: `Move invoices extracted with "upload --anonymous" from the local claim
cache into the database under a user ID.

Anonymous results exist only in the local cache; claiming is the only way
to keep them. The cache is cleared after a successful claim.`,
	Example: `  trulyinvoice claim --user 42
  trulyinvoice claim            # uses TRULYINVOICE_USER_ID`,
	Args: cobra.NoArgs,
	RunE: runClaim,
}

func init() {
	rootCmd.AddCommand(claimCmd)

	claimCmd.Flags().String("user", "", "User ID to claim under (defaults to TRULYINVOICE_USER_ID)")
}

func runClaim(cmd *cobra.Command, args []string) error {
	userFlag, _ := cmd.Flags().GetString("user")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	userID := cfg.UserID
	if userFlag != "" {
		userID = userFlag
	}
	if userID == "" {
		return fmt.Errorf("a user ID is required (set TRULYINVOICE_USER_ID or use --user)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	cache := store.NewAnonCache(cfg.ClaimCacheDir)
	pending, err := cache.PendingRecords()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("Nothing to claim.")
		return nil
	}

	claimed, err := cache.Claim(func(record *models.InvoiceRecord) error {
		return db.Save(ctx, record)
	}, userID)
	if err != nil {
		return fmt.Errorf("claimed %d of %d record(s): %w", claimed, len(pending), err)
	}

	fmt.Printf("%d invoice(s) claimed for user %s.\n", claimed, userID)
	return nil
}
