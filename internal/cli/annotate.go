package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ponyvote/ballotcheck/internal/checker"
)

var (
	annotateStatus    string
	annotateNote      string
	annotateWhitelist bool
	poolLimit         int
	listJSON          bool
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <link>",
	Short: "Label a video by hand",
	Long: `Annotate records an operator decision for a video.

Statuses:
  eligible     manual label, overrides the automatic flags
  ineligible   manual label, overrides the automatic flags
  reupload     --note is the link of the original upload
  default      remove the manual label

--whitelist makes the video visible in title search; it is written on
every annotation.

Example:
  ballotcheck annotate https://youtu.be/dQw4w9WgXcQ --status ineligible --note "Reupload of a 2019 video"
  ballotcheck annotate https://youtu.be/dQw4w9WgXcQ --status default --whitelist`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := checker.ParseStatus(annotateStatus)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ref, err := a.checker.Annotate(cmd.Context(), args[0], status, annotateNote, annotateWhitelist)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ %s marked %s\n", ref, status)
		return nil
	},
}

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "List the most voted videos with all their flags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		pool, err := a.checker.Pool(cmd.Context(), poolLimit)
		if err != nil {
			return err
		}
		if listJSON {
			return writeJSON(os.Stdout, pool)
		}
		return renderPool(os.Stdout, pool)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search whitelisted videos of the current period by title",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		videos, err := a.checker.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if listJSON {
			return writeJSON(os.Stdout, videos)
		}
		return renderVideos(os.Stdout, videos)
	},
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(poolCmd)
	rootCmd.AddCommand(searchCmd)

	annotateCmd.Flags().StringVar(&annotateStatus, "status", string(checker.StatusDefault), "eligible, ineligible, reupload or default")
	annotateCmd.Flags().StringVar(&annotateNote, "note", "", "reason shown to voters, or the original link for reupload")
	annotateCmd.Flags().BoolVar(&annotateWhitelist, "whitelist", false, "show the video in title search")

	poolCmd.Flags().IntVar(&poolLimit, "limit", 0, "number of videos (default 45)")
	for _, cmd := range []*cobra.Command{poolCmd, searchCmd} {
		cmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")
	}
}
