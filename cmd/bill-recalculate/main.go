package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/models"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
)

// Recalculates stored bill totals from line items, exchanges and payments.
// Run after manual data fixes or after a change to the derivation rules.
func main() {
	billID := flag.Int("bill-id", 0, "Optional: recalculate a single bill")
	fromDateStr := flag.String("from", "", "Optional: only bills dated on or after (YYYY-MM-DD)")
	dryRun := flag.Bool("dry-run", false, "List affected bills without writing")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing bills and continue")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := utils.SetUsernameInContext(context.Background(), "bill-recalculate")

	var ids []int
	if *billID > 0 {
		ids = append(ids, *billID)
	} else {
		query := db.Model(&models.Bill{}).Order("id")
		if strings.TrimSpace(*fromDateStr) != "" {
			from, err := time.Parse("2006-01-02", strings.TrimSpace(*fromDateStr))
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid from date: %v\n", err)
				os.Exit(1)
			}
			query = query.Where("bill_date >= ?", from)
		}
		if err := query.Pluck("id", &ids).Error; err != nil {
			fmt.Fprintf(os.Stderr, "list bills: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("recalculating %d bill(s)\n", len(ids))

	failed := 0
	for _, id := range ids {
		if *dryRun {
			fmt.Printf("would recalculate bill %d\n", id)
			continue
		}
		bill, err := models.RecomputeBill(ctx, id)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "bill %d: %v\n", id, err)
			if !*continueOnError {
				os.Exit(1)
			}
			continue
		}
		fmt.Printf("bill %d %s: net_payable=%s balance=%s status=%s\n",
			bill.ID, bill.BillNumber,
			bill.NetPayable.StringFixed(2), bill.Balance.StringFixed(2), bill.Status)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d bill(s) failed\n", failed)
		os.Exit(1)
	}
}
