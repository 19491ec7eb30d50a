package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/epirun/epirun/core/config"
	"github.com/epirun/epirun/core/runlog"
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"log"},
	Short:   "Explore pipeline run logs.",
}

// logsReportCmd aggregates run event logs.
var logsReportCmd = &cobra.Command{
	Use:   "report [RUN.jsonl...]",
	Short: "Show a report of pipeline runs.",
	Long: `Aggregates newline delimited JSON run logs into per-run summaries.
With no arguments, reports on every log in the study's run_logs directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		paths := args
		if len(paths) == 0 {
			// Make sure we're inside an initialized study before globbing.
			if _, err := loadConfig(); err != nil {
				return err
			}

			matches, err := filepath.Glob(filepath.Join(cfgPath, config.RunLogsDirName, "*.jsonl"))
			if err != nil {
				return err
			}
			sort.Strings(matches)
			paths = matches
		}

		var report runlog.Report
		for _, path := range paths {
			fd, err := os.Open(path)
			if err != nil {
				return err
			}
			err = runlog.ReadJSONLinesLog(fd, report.Update)
			fd.Close()
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsReportCmd)
}
