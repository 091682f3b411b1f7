package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/modelbay/modelbay/internal/artifacts"
	"github.com/modelbay/modelbay/internal/config"
	"github.com/modelbay/modelbay/internal/policy"
	"github.com/modelbay/modelbay/internal/runner"
	"github.com/modelbay/modelbay/internal/runs"
)

var (
	runTimeout    int
	runArgsJSON   string
	runKwargsJSON string
)

var runCmd = &cobra.Command{
	Use:   "run <artifact> <function>",
	Short: "Execute an artifact entry point once",
	Long: `Execute a single artifact entry point and print the outcome as JSON.

Arguments are passed as JSON:
  modelbay run daily_report generate --args '["2026-08-01"]' --kwargs '{"full": true}'`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "Timeout override in seconds")
	runCmd.Flags().StringVar(&runArgsJSON, "args", "", "Positional arguments as a JSON array")
	runCmd.Flags().StringVar(&runKwargsJSON, "kwargs", "", "Keyword arguments as a JSON object")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, cmdArgs []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLogging(&cfg.Logging)

	req := &runs.Request{
		Artifact:       cmdArgs[0],
		Function:       cmdArgs[1],
		TimeoutSeconds: runTimeout,
		Requester:      "cli",
	}

	if runArgsJSON != "" {
		if err := json.Unmarshal([]byte(runArgsJSON), &req.Args); err != nil {
			return fmt.Errorf("parsing --args: %w", err)
		}
	}
	if runKwargsJSON != "" {
		if err := json.Unmarshal([]byte(runKwargsJSON), &req.Kwargs); err != nil {
			return fmt.Errorf("parsing --kwargs: %w", err)
		}
	}

	svc, err := buildRunService(cfg)
	if err != nil {
		return err
	}

	outcome, err := svc.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(outcome); err != nil {
		return fmt.Errorf("encoding outcome: %w", err)
	}

	if !outcome.OK() {
		os.Exit(1)
	}
	return nil
}

// buildRunService assembles the execution pipeline without the HTTP
// server or history database. One-off CLI runs are not recorded.
func buildRunService(cfg *config.Config) (*runs.Service, error) {
	registry, err := artifacts.NewRegistry(cfg.Artifacts.Root, cfg.Artifacts.Include, cfg.Artifacts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("creating artifact registry: %w", err)
	}
	if err := registry.Discover(); err != nil {
		return nil, fmt.Errorf("discovering artifacts: %w", err)
	}
	log.Debug().Int("artifacts", registry.Count()).Msg("Artifacts discovered")

	loader := artifacts.NewLoader(registry, cfg.Runner.PythonBin)

	policyEngine, err := policy.NewEngine(cfg.Policy.Rules)
	if err != nil {
		return nil, fmt.Errorf("building policy engine: %w", err)
	}

	run := runner.New(cfg.Runner.PythonBin, cfg.Runner.MaxOutputBytes)
	return runs.NewService(registry, loader, run, policyEngine, nil, &cfg.Runner), nil
}
