// Package cli implements the modelbay command tree.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "modelbay",
	Short: "An execution service for published analysis models",
	Long: `Modelbay runs published Python analysis models in isolated,
time-bounded child processes and keeps a queryable record of every run.

  - Artifacts are discovered from a directory and validated before execution
  - Each run happens in a fresh subprocess with timeout and memory limits
  - Long-running analyses go through the async jobs queue
  - Every run outcome lands in the SQLite-backed history

Start the server:
  modelbay serve

Run an artifact once from the command line:
  modelbay run daily_report generate`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./modelbay.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// setupLogging configures zerolog based on verbosity.
func setupLogging() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}
