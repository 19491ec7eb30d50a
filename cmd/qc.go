package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/epirun/epirun/core/qc"
)

var (
	qcRoot      string
	qcShowNewer bool
)

var qcCmd = &cobra.Command{
	Use:   "qc",
	Short: "Quality-control bookkeeping across studies.",
}

// qcTodoCmd lists QC documents that still need attention.
var qcTodoCmd = &cobra.Command{
	Use:   "todo",
	Short: "List QC documents which haven't been signed off on.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		opts := qc.Options{Root: qcRoot, ShowNewer: qcShowNewer}

		// The flags win; the config fills in whatever they left unset.
		configuration, err := loadConfig()
		switch {
		case err == nil:
			if opts.Root == "" {
				opts.Root = configuration.QC.Root
			}
			opts.ShowNewer = opts.ShowNewer || configuration.QC.ShowNewer
		case errors.Is(err, fs.ErrNotExist) && qcRoot != "":
			// Usable without a study config when --root is given.
		default:
			return err
		}

		findings, err := qc.Todo(afero.NewOsFs(), opts)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, finding := range findings {
			fmt.Fprintln(w, finding)
			for _, path := range finding.Newer {
				fmt.Fprintf(w, "\t%s\n", path)
			}
		}
		return nil
	},
}

func init() {
	qcTodoCmd.Flags().StringVar(&qcRoot, "root", "", "parent folder of all study folders")
	qcTodoCmd.Flags().BoolVar(&qcShowNewer, "show-newer", false, "show data files newer than their QC doc")
	rootCmd.AddCommand(qcCmd)
	qcCmd.AddCommand(qcTodoCmd)
}
