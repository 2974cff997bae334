package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ponyvote/ballotcheck/internal/ballot"
	"github.com/ponyvote/ballotcheck/internal/model"
	"github.com/ponyvote/ballotcheck/internal/worker"
)

var (
	checkAll     bool
	checkJSON    bool
	checkTimeout time.Duration
	ballotSave   bool
	ballotUser   string
)

var checkCmd = &cobra.Command{
	Use:   "check <link>",
	Short: "Check a single video link",
	Long: `Check resolves one link and applies the single-video rules.

By default an operator's manual label replaces the automatic flags; --all
shows the automatic flags followed by the manual one.

Example:
  ballotcheck check https://youtu.be/dQw4w9WgXcQ
  ballotcheck check https://vimeo.com/76979871 --all --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var ballotCmd = &cobra.Command{
	Use:   "ballot <file>",
	Short: "Check a ballot file (one link per line)",
	Long: `Ballot evaluates up to ten links as one voter's ballot: every entry is
checked on its own, then duplicate votes, creator diversity and the minimum
number of eligible votes are applied across the ballot.

Lines starting with '#' are comments. With --save the entries are stored
for --user (a new id when omitted) and the saved ballot is reported.

Example:
  ballotcheck ballot february.txt
  ballotcheck ballot february.txt --save --user 5f0c...`,
	Args: cobra.ExactArgs(1),
	RunE: runBallot,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(ballotCmd)

	checkCmd.Flags().BoolVar(&checkAll, "all", false, "show automatic flags together with the manual label")
	for _, cmd := range []*cobra.Command{checkCmd, ballotCmd} {
		cmd.Flags().BoolVar(&checkJSON, "json", false, "print JSON instead of a table")
		cmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall timeout")
	}
	ballotCmd.Flags().BoolVar(&ballotSave, "save", false, "store the ballot entries")
	ballotCmd.Flags().StringVar(&ballotUser, "user", "", "voter id for --save (default: a new UUID)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ev := a.checker.ResolveAndEvaluate(ctx, args[0], checkAll)
	if checkJSON {
		return writeJSON(os.Stdout, ev)
	}
	return renderEvaluation(os.Stdout, ev)
}

func runBallot(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	links, err := worker.ReadBallotFile(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var res ballot.Result
	if ballotSave {
		res, err = saveBallot(ctx, a, links)
	} else {
		res, err = a.checker.EvaluateBallot(ctx, links)
	}
	if err != nil {
		return err
	}

	if checkJSON {
		return writeJSON(os.Stdout, res)
	}
	return renderBallot(os.Stdout, res)
}

func saveBallot(ctx context.Context, a *app, links []string) (ballot.Result, error) {
	if len(links) > model.BallotSize {
		return ballot.Result{}, fmt.Errorf("%w: %d links", ballot.ErrTooManyEntries, len(links))
	}
	if ballotUser == "" {
		ballotUser = uuid.NewString()
	}

	for i := 0; i < model.BallotSize; i++ {
		if i >= len(links) {
			if err := a.checker.RemoveEntry(ctx, ballotUser, i); err != nil {
				return ballot.Result{}, err
			}
			continue
		}
		if _, err := a.checker.ValidateEntry(ctx, ballotUser, i, links[i]); err != nil {
			return ballot.Result{}, err
		}
	}

	saved, err := a.checker.LoadBallot(ctx, ballotUser)
	if err != nil {
		return ballot.Result{}, err
	}
	fmt.Fprintf(os.Stderr, "Saved ballot for voter %s (%d items)\n\n", saved.UserID, len(saved.Items))
	return saved.Result, nil
}
