package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/spf13/cobra"

	"github.com/epirun/epirun/core/pipeline"
	"github.com/epirun/epirun/core/script"
)

var renderSave bool

// renderCmd emits the pipeline as the classic generated shell script.
var renderCmd = &cobra.Command{
	Use:   "render FUNCDIR TRIALS TRIALLEN ISO",
	Short: "Render the pipeline as a shell script.",
	Long: `Writes the preprocessing sequence as a flat POSIX shell script with
literal arguments, byte-for-byte reproducible for the same inputs.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		params, err := parseParams(args)
		if err != nil {
			return err
		}

		// Rendering works without an initialized study; fall back to the
		// stock literals when there's no config.
		opts := pipeline.DefaultOptions()
		configuration, err := loadConfig()
		switch {
		case err == nil:
			if opts, err = configuration.Options(); err != nil {
				return err
			}
		case errors.Is(err, fs.ErrNotExist):
			log.Println("Using default pipeline parameters")
			configuration = nil
		default:
			return err
		}

		steps, err := pipeline.Plan(params, opts)
		if err != nil {
			return err
		}

		if !renderSave || configuration == nil {
			return script.Render(cmd.OutOrStdout(), params, steps)
		}

		name := script.Filename("rest")
		fd, err := configuration.CreateScript(name)
		if err != nil {
			return err
		}
		defer fd.Close()

		if err := script.Render(fd, params, steps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote scripts/%s\n", name)
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderSave, "save", false, "write into the study's scripts/ directory instead of stdout")
	rootCmd.AddCommand(renderCmd)
}
