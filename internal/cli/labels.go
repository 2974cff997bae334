package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ponyvote/ballotcheck/internal/model"
)

var labelsYAML bool

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Show or change the eligibility labels",
}

var labelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the labels in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		catalog := a.checker.Catalog()
		if labelsYAML {
			out, err := yaml.Marshal(catalog.Entries())
			if err != nil {
				return fmt.Errorf("marshal labels: %w", err)
			}
			_, err = os.Stdout.Write(out)
			return err
		}
		return renderLabels(os.Stdout, catalog)
	},
}

var labelsSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Apply label overrides from a YAML file",
	Long: `Set reads a YAML list of labels and stores each one as an override of the
label with the same trigger. Name, type and details are replaced; the
trigger identifies the label and never changes.

  - name: 4a
    type: maybe ineligible
    trigger: <30 second video
    details: Short length, check the credits

'labels show --yaml' prints the current table in this format.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := readLabelFile(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		catalog, err := a.checker.UpdateLabels(cmd.Context(), rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Applied %d label overrides\n\n", len(rows))
		return renderLabels(os.Stdout, catalog)
	},
}

// readLabelFile parses and validates an override file
func readLabelFile(path string) ([]model.Flag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	var rows []model.Flag
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	for i, r := range rows {
		if r.Trigger == "" {
			return nil, fmt.Errorf("label %d: missing trigger", i+1)
		}
		if !r.Type.Valid() {
			return nil, fmt.Errorf("label %d (%s): unknown type %q", i+1, r.Trigger, r.Type)
		}
	}
	return rows, nil
}

func init() {
	rootCmd.AddCommand(labelsCmd)
	labelsCmd.AddCommand(labelsShowCmd)
	labelsCmd.AddCommand(labelsSetCmd)
	labelsShowCmd.Flags().BoolVar(&labelsYAML, "yaml", false, "print YAML suitable for 'labels set'")
}
