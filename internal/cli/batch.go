package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponyvote/ballotcheck/internal/ballot"
	"github.com/ponyvote/ballotcheck/internal/worker"
)

var (
	batchWorkers int
	batchOutDir  string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Check many ballot files in parallel",
	Long: `Batch evaluates several ballot files concurrently and prints one summary
line per ballot. Links to the same platform are rate limited across all
ballots, and repeated videos are served from the cache.

Example:
  ballotcheck batch ballots/*.txt
  ballotcheck batch ballots/*.txt --workers 8 --output-dir ./results`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "ballots processed at once (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&batchOutDir, "output-dir", "", "write one JSON result per ballot into this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the batch")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	workers := batchWorkers
	if workers <= 0 {
		workers = a.cfg.Concurrency.Workers
	}
	if batchOutDir != "" {
		if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n%s\n  Ballotcheck Batch\n%s\n\n", rule, rule)
	fmt.Fprintf(os.Stderr, "  Ballots:  %d\n", len(args))
	fmt.Fprintf(os.Stderr, "  Workers:  %d\n\n", workers)

	start := time.Now()
	results := worker.NewBatchProcessor(a.checker, workers, a.logger).ProcessFiles(ctx, args)

	var valid, invalid, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", colorIneligible.Sprint("✗"), r.Path, r.Err)
			continue
		}

		c := ballot.Summarize(r.Result)
		status := colorEligible.Sprint("✓")
		if r.Result.Valid() {
			valid++
		} else {
			invalid++
			status = colorIneligible.Sprint("✗")
		}
		line := fmt.Sprintf("%s %s: %d/%d eligible, %d creators", status, r.Path, c.Eligible, c.Total, c.Creators)
		if h := r.Result.Headline; h != nil {
			line += " (" + flagColor(h.Type).Sprint(h.Name) + ")"
		}
		fmt.Fprintln(os.Stderr, line)

		if batchOutDir != "" {
			if err := writeResult(filepath.Join(batchOutDir, resultName(r.Path)), r); err != nil {
				fmt.Fprintf(os.Stderr, "  failed to write result: %v\n", err)
			}
		}
	}

	fmt.Fprintf(os.Stderr, "\n%s\n  Batch Complete\n%s\n\n", rule, rule)
	fmt.Fprintf(os.Stderr, "  Valid:     %d\n", valid)
	fmt.Fprintf(os.Stderr, "  Invalid:   %d\n", invalid)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Elapsed:   %s\n\n", time.Since(start).Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("%d of %d ballots could not be checked", failed, len(results))
	}
	return nil
}

// resultName maps a ballot path to a flat JSON file name
func resultName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer(" ", "_", ":", "_", "*", "_", "?", "_").Replace(base)
	if base == "" || base == "." {
		base = "ballot"
	}
	return base + ".json"
}

func writeResult(path string, r worker.BallotResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return writeJSON(f, struct {
		Path   string        `json:"path"`
		Links  []string      `json:"links"`
		Result ballot.Result `json:"result"`
	}{r.Path, r.Links, r.Result})
}
