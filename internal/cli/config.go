package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ponyvote/ballotcheck/internal/model"
)

const hierarchy = `Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (BALLOTCHECK_*, API_KEY for the YouTube key)
  3. Config file (~/.ballotcheck/config.yaml)
  4. Defaults`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ballotcheck configuration",
	Long:  "Manage ballotcheck configuration files and settings.\n\n" + hierarchy,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.YouTube.APIKey != "" {
			cfg.YouTube.APIKey = "********"
		}

		if f := viper.ConfigFileUsed(); f != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", f)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Println(rule)
		fmt.Println("  Current Configuration")
		fmt.Println(rule)
		fmt.Println()
		fmt.Println(string(out))
		fmt.Println(hierarchy)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := configDir()
		if err != nil {
			return err
		}
		path := filepath.Join(dir, "config.yaml")

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'ballotcheck config show' to view it, or delete it first to recreate", path)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		data, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		header := "# ballotcheck configuration\n#\n" + commentLines(hierarchy) + "\n"
		footer := "\n# Secrets are better kept in the environment:\n#   export BALLOTCHECK_YOUTUBE_API_KEY=...\n#   export BALLOTCHECK_STORE_DATABASE_URL=postgres://...\n"

		if err := os.WriteFile(path, append(append([]byte(header), data...), footer...), 0o600); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", path)
		fmt.Printf("\nTo view the configuration:\n  ballotcheck config show\n\n")
		return nil
	},
}

// commentLines turns every line of s into a YAML comment
func commentLines(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		b.WriteString("# " + line + "\n")
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
