package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponyvote/ballotcheck/internal/period"
)

var periodAt string

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Show the contest month and eligible upload dates",
	Long: `Period prints the month being voted on, whether the submission window is
open and the inclusive range of eligible upload dates, in local time.

Example:
  ballotcheck period
  ballotcheck period --at 2024-03-03`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		if periodAt != "" {
			t, err := time.ParseInLocation("2006-01-02", periodAt, time.Local)
			if err != nil {
				return fmt.Errorf("parse --at: %w", err)
			}
			now = t
		}

		p := period.Current(now)
		rng := period.EligibleRange(now)
		window := colorMuted.Sprint("closed")
		if p.WindowOpen {
			window = colorEligible.Sprint("open")
		}

		fmt.Printf("  Contest month:  %s %d\n", p.Month, p.Year)
		fmt.Printf("  Submissions:    %s\n", window)
		fmt.Printf("  Eligible:       %s .. %s\n", rng.Earliest.Format("2006-01-02"), rng.Latest.Format("2006-01-02"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(periodCmd)
	periodCmd.Flags().StringVar(&periodAt, "at", "", "evaluate at this date (YYYY-MM-DD) instead of today")
}
