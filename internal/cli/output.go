package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/ponyvote/ballotcheck/internal/ballot"
	"github.com/ponyvote/ballotcheck/internal/checker"
	"github.com/ponyvote/ballotcheck/internal/labels"
	"github.com/ponyvote/ballotcheck/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

var (
	colorIneligible = color.New(color.FgHiRed, color.Bold)
	colorMaybe      = color.New(color.FgHiYellow, color.Bold)
	colorEligible   = color.New(color.FgHiGreen, color.Bold)
	colorMuted      = color.New(color.FgHiBlack)
	colorTitle      = color.New(color.FgHiBlue, color.Bold)
)

func flagColor(t model.FlagType) *color.Color {
	switch t {
	case model.FlagIneligible:
		return colorIneligible
	case model.FlagMaybeIneligible:
		return colorMaybe
	case model.FlagEligible:
		return colorEligible
	default:
		return colorMuted
	}
}

// verdict is the one-word summary of a flag list
func verdict(flags []model.Flag) string {
	h, ok := model.Headline(flags)
	if !ok {
		return colorEligible.Sprint("eligible")
	}
	return flagColor(h.Type).Sprint(string(h.Type))
}

func flagNames(flags []model.Flag) string {
	parts := make([]string, 0, len(flags))
	for _, f := range flags {
		parts = append(parts, flagColor(f.Type).Sprint(f.Name))
	}
	return strings.Join(parts, ", ")
}

func formatDuration(d *int) string {
	if d == nil {
		return "?"
	}
	return fmt.Sprintf("%d:%02d", *d/60, *d%60)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	return table.Render()
}

func renderEvaluation(w io.Writer, ev checker.Evaluation) error {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s\n", ev.Input)
	fmt.Fprintln(w, rule)

	if m := ev.Metadata; m != nil {
		fmt.Fprintf(w, "  Title:     %s\n", colorTitle.Sprint(m.Title))
		fmt.Fprintf(w, "  Uploader:  %s (%s)\n", m.Uploader, m.Ref.Platform)
		fmt.Fprintf(w, "  Uploaded:  %s\n", m.UploadDate.Format("2006-01-02"))
		fmt.Fprintf(w, "  Duration:  %s\n", formatDuration(m.Duration))
		if m.Source != "" {
			fmt.Fprintf(w, "  Source:    %s\n", m.Source)
		}
	}
	fmt.Fprintf(w, "  Verdict:   %s\n\n", verdict(ev.Flags))

	if len(ev.Flags) == 0 {
		return nil
	}
	rows := [][]string{{"Rule", "Type", "Details"}}
	for _, f := range ev.Flags {
		rows = append(rows, []string{f.Name, flagColor(f.Type).Sprint(string(f.Type)), f.Details})
	}
	return renderTable(w, rows)
}

func renderBallot(w io.Writer, res ballot.Result) error {
	rows := [][]string{{"#", "Video", "Uploader", "Flags"}}
	for i, e := range res.Entries {
		title, uploader := colorMuted.Sprint(e.Input), ""
		if m, ok := e.Video.Metadata(); ok {
			title, uploader = m.Title, m.Uploader
		}
		if e.Input == "" {
			title = colorMuted.Sprint("(empty)")
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), title, uploader, flagNames(e.Flags)})
	}
	if err := renderTable(w, rows); err != nil {
		return err
	}

	c := ballot.Summarize(res)
	fmt.Fprintf(w, "\n  Eligible votes:   %d/%d\n", c.Eligible, c.Total)
	fmt.Fprintf(w, "  Unique creators:  %d\n", c.Creators)
	if res.Headline != nil {
		fmt.Fprintf(w, "  Ballot:           %s %s\n", flagColor(res.Headline.Type).Sprint(res.Headline.Name), res.Headline.Details)
	} else {
		fmt.Fprintf(w, "  Ballot:           %s\n", colorEligible.Sprint("ok"))
	}
	return nil
}

func renderLabels(w io.Writer, catalog *labels.Catalog) error {
	rows := [][]string{{"Key", "Name", "Type", "Trigger"}}
	entries := catalog.Map()
	for _, k := range labels.Keys {
		f := entries[k]
		rows = append(rows, []string{string(k), f.Name, flagColor(f.Type).Sprint(string(f.Type)), f.Trigger})
	}
	return renderTable(w, rows)
}

func renderPool(w io.Writer, pool []checker.PoolVideo) error {
	rows := [][]string{{"Votes", "Video", "Uploader", "Platform", "Flags"}}
	for _, p := range pool {
		rows = append(rows, []string{
			strconv.Itoa(p.Votes),
			p.Video.Title,
			p.Video.Uploader,
			string(p.Video.Platform),
			flagNames(p.Flags),
		})
	}
	return renderTable(w, rows)
}

func renderVideos(w io.Writer, videos []model.ClientVideo) error {
	rows := [][]string{{"Video", "Uploader", "Link"}}
	for _, v := range videos {
		rows = append(rows, []string{v.Title, v.Uploader, v.Link})
	}
	return renderTable(w, rows)
}
