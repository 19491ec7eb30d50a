package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/epirun/epirun/core/config"
	"github.com/epirun/epirun/core/pipeline"
)

var cfgPath string

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(afero.NewOsFs(), cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// parseParams converts the four positional arguments every pipeline command
// takes: data path, trial count, trial length, isotropic dimensions.
func parseParams(args []string) (pipeline.Params, error) {
	trialCount, err := strconv.Atoi(args[1])
	if err != nil {
		return pipeline.Params{}, fmt.Errorf("trial count: %w", err)
	}
	trialLength, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return pipeline.Params{}, fmt.Errorf("trial length: %w", err)
	}
	isotropic, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return pipeline.Params{}, fmt.Errorf("isotropic dimensions: %w", err)
	}

	params := pipeline.Params{
		FuncDir:     args[0],
		TrialCount:  trialCount,
		TrialLength: trialLength,
		Isotropic:   isotropic,
	}
	return params, params.Validate()
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "epirun",
	Short: "Functional MRI preprocessing pipeline driver",
	Long: `Renders and runs the fixed sequence of AFNI/FSL preprocessing steps
(deobliquing, motion correction, despiking, filtering, registration,
smoothing) that used to live in generated shell scripts.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
}
