package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/epirun/epirun/core/pipeline"
)

var stepNameColor = color.New(color.FgGreen, color.Bold)

// stepsCmd lists the fixed plan with resolved arguments.
var stepsCmd = &cobra.Command{
	Use:   "steps [FUNCDIR TRIALS TRIALLEN ISO]",
	Short: "List the pipeline steps in execution order.",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 4 {
			return fmt.Errorf("accepts 0 or 4 args, received %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		// Placeholder inputs keep the listing useful before a session is
		// chosen.
		params := pipeline.Params{FuncDir: ".", TrialCount: 0, TrialLength: 2, Isotropic: 3}
		if len(args) == 4 {
			var err error
			if params, err = parseParams(args); err != nil {
				return err
			}
		}

		opts := pipeline.DefaultOptions()
		configuration, err := loadConfig()
		switch {
		case err == nil:
			if opts, err = configuration.Options(); err != nil {
				return err
			}
		case errors.Is(err, fs.ErrNotExist):
			// Stock literals.
		default:
			return err
		}

		steps, err := pipeline.Plan(params, opts)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for i, step := range steps {
			fmt.Fprintf(w, "%2d. %s\n", i+1, stepNameColor.Sprint(step.Name))
			fmt.Fprintf(w, "    # %s\n", step.Comment)
			line := strings.Join(step.Argv(), " ")
			if step.StdoutFile != "" {
				line += " > " + step.StdoutFile
			}
			fmt.Fprintf(w, "    %s\n", line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stepsCmd)
}
