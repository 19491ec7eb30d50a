package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/epirun/epirun/core/pipeline"
	"github.com/epirun/epirun/core/runlog"
	"github.com/epirun/epirun/core/runner"
)

var (
	runDryRun    bool
	runKeepGoing bool
)

// runCmd executes the preprocessing plan directly.
var runCmd = &cobra.Command{
	Use:   "run FUNCDIR TRIALS TRIALLEN ISO",
	Short: "Run the preprocessing pipeline on a functional session.",
	Long: `Executes the fixed preprocessing sequence inside FUNCDIR, one step at
a time. Stops at the first failing step unless --keep-going is set.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		params, err := parseParams(args)
		if err != nil {
			return err
		}

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		opts, err := configuration.Options()
		if err != nil {
			return err
		}

		steps, err := pipeline.Plan(params, opts)
		if err != nil {
			return err
		}

		appLog, err := configuration.OpenAppLog()
		if err != nil {
			return err
		}
		defer appLog.Close()

		eventLog, err := configuration.CreateRunLog(fmt.Sprintf("run_%s.jsonl", time.Now().Format("20060102_150405")))
		if err != nil {
			return err
		}
		defer eventLog.Close()

		diag := newDiagLogger(appLog)
		defer diag.Sync()

		r := runner.New(runlog.NewJSONLinesRecorder(eventLog), diag, cmd.OutOrStdout(), cmd.ErrOrStderr())
		r.Executor = &runner.DirectExecutor{
			Env:     configuration.ToolEnv(os.Getenv("PATH")),
			Timeout: configuration.StepTimeout(),
			Output:  cmd.ErrOrStderr(),
		}
		r.DryRun = runDryRun
		r.KeepGoing = runKeepGoing

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf("Running %d steps in %s", len(steps), params.FuncDir)
		return r.Run(ctx, params, steps)
	},
}

// newDiagLogger builds the runner's structured diagnostic logger on top of
// the study's append-only application log.
func newDiagLogger(w io.Writer) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), zap.InfoLevel)
	return zap.New(core)
}

func init() {
	runCmd.Flags().BoolVarP(&runDryRun, "dry-run", "n", false, "print each invocation without executing")
	runCmd.Flags().BoolVar(&runKeepGoing, "keep-going", false, "continue past failing steps like the historical scripts did")
	rootCmd.AddCommand(runCmd)
}
