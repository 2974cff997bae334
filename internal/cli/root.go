package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ballotcheck",
	Short: "Ballotcheck - eligibility checks for monthly video vote ballots",
	Long: `Ballotcheck checks links submitted to a monthly video vote.

For every link it identifies the platform and video, looks up the video's
metadata and applies the contest rules: upload period, minimum length and
the host's own channel. For a whole ballot it adds duplicate votes, creator
diversity and the minimum number of eligible votes.

Flags describe why a vote may not count. Operators can override them per
video and retune every label.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ballotcheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.ballotcheck/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, console)")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// configDir is where config init writes and the default search path
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".ballotcheck"), nil
}

// initConfig reads the config file and the environment
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// BALLOTCHECK_STORE_DATABASE_URL -> store.database_url
	viper.SetEnvPrefix("BALLOTCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Unmarshal only sees env vars viper knows about
	for _, key := range []string{
		"store.driver", "store.database_url",
		"cache.enabled", "cache.disk_dir", "cache.redis_url",
		"extractor.binary", "extractor.cookies_file",
	} {
		_ = viper.BindEnv(key)
	}
	_ = viper.BindEnv("youtube.api_key", "BALLOTCHECK_YOUTUBE_API_KEY", "API_KEY")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
