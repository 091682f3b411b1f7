package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modelbay/modelbay/internal/artifacts"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "List discovered artifacts",
	RunE:  runArtifacts,
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLogging(&cfg.Logging)

	registry, err := artifacts.NewRegistry(cfg.Artifacts.Root, cfg.Artifacts.Include, cfg.Artifacts.Exclude)
	if err != nil {
		return fmt.Errorf("creating artifact registry: %w", err)
	}
	if err := registry.Discover(); err != nil {
		return fmt.Errorf("discovering artifacts: %w", err)
	}

	list := registry.List()
	if len(list) == 0 {
		fmt.Printf("No artifacts found under %s\n", cfg.Artifacts.Root)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLASS\tTIMEOUT\tMANIFEST\tDESCRIPTION")
	for _, a := range list {
		timeout := "-"
		if a.TimeoutSeconds > 0 {
			timeout = fmt.Sprintf("%ds", a.TimeoutSeconds)
		}
		manifest := "no"
		if a.HasManifest {
			manifest = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Class, timeout, manifest, a.Description)
	}
	return w.Flush()
}
