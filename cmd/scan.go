package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/epirun/epirun/core/scanid"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Work with session and series names.",
}

// scanParseCmd explains a session or series name.
var scanParseCmd = &cobra.Command{
	Use:   "parse NAME",
	Short: "Parse a session or series name into its fields.",
	Long: `Parses names following the <study>_<site>_<subject>_<timepoint>_<session>
scheme, or exported series filenames which add _<tag>_<series>_<description>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		w := cmd.OutOrStdout()

		if id, err := scanid.Parse(args[0]); err == nil {
			printScanID(w, id)
			return nil
		}

		file, err := scanid.ParseFilename(args[0])
		if errors.Is(err, scanid.ErrInvalidFilename) {
			return fmt.Errorf("%q is neither a session nor a series name", args[0])
		} else if err != nil {
			return err
		}

		printScanID(w, file.ScanID)
		fmt.Fprintf(w, "tag:         %s\n", file.Tag)
		fmt.Fprintf(w, "series:      %s\n", file.Series)
		fmt.Fprintf(w, "description: %s\n", file.Description)
		fmt.Fprintf(w, "extension:   %s\n", file.Ext)
		return nil
	},
}

func printScanID(w io.Writer, id scanid.ScanID) {
	fmt.Fprintf(w, "study:       %s\n", id.Study)
	fmt.Fprintf(w, "site:        %s\n", id.Site)
	fmt.Fprintf(w, "subject:     %s\n", id.Subject)
	fmt.Fprintf(w, "timepoint:   %s\n", id.Timepoint)
	fmt.Fprintf(w, "session:     %s\n", id.Session)
	if id.IsPhantom() {
		fmt.Fprintln(w, "phantom:     yes")
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanParseCmd)
}
