// Package runner executes a pipeline plan against the real toolchain.
//
// Execution is strictly sequential: each step runs to completion before the
// next begins. The runner owns nothing clever; the interesting behavior lives
// in the external tools.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/epirun/epirun/core/pipeline"
	"github.com/epirun/epirun/core/runlog"
)

var stepBanner = color.New(color.FgCyan, color.Bold)

// Result is the outcome of one step execution.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Executor runs a single step in a working directory.
type Executor interface {
	ExecStep(ctx context.Context, step pipeline.Step, dir string) (Result, error)
}

// DirectExecutor runs steps directly on the host with os/exec.
type DirectExecutor struct {
	// Env is appended to the inherited environment, e.g. AFNI/FSL dirs.
	Env []string
	// Timeout bounds a single step; zero means no bound.
	Timeout time.Duration
	// Output receives tool stdout (unless redirected) and stderr.
	Output io.Writer
}

// ExecStep implements Executor.
func (e *DirectExecutor) ExecStep(ctx context.Context, step pipeline.Step, dir string) (Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, step.Tool, step.Args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), e.Env...)
	cmd.Stdout = e.Output
	cmd.Stderr = e.Output

	if step.StdoutFile != "" {
		fd, err := os.Create(filepath.Join(dir, step.StdoutFile))
		if err != nil {
			return Result{ExitCode: -1}, err
		}
		defer fd.Close()
		cmd.Stdout = fd
	}

	start := time.Now()
	err := cmd.Run()
	result := Result{Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		// Exit code 0.
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		// Tool missing, unstartable, or killed by the context.
		result.ExitCode = -1
	}
	return result, err
}

// Runner drives a plan through an Executor, one step at a time.
type Runner struct {
	Executor Executor
	// Progress receives the human readable step banner lines.
	Progress io.Writer
	// Events receives the machine readable run log.
	Events *runlog.Logger
	// Diag is the runner's own diagnostic logger.
	Diag *zap.Logger

	// DryRun prints each invocation without executing it.
	DryRun bool
	// KeepGoing restores the historical ignore-errors behavior of the
	// generated scripts: failed steps are logged and the run continues.
	KeepGoing bool
}

// New returns a Runner wired for direct host execution.
func New(events *runlog.Logger, diag *zap.Logger, progress, toolOutput io.Writer) *Runner {
	return &Runner{
		Executor: &DirectExecutor{Output: toolOutput},
		Progress: progress,
		Events:   events,
		Diag:     diag,
	}
}

// Run executes the plan for params sequentially inside params.FuncDir.
// It stops at the first failing step unless KeepGoing is set.
func (r *Runner) Run(ctx context.Context, params pipeline.Params, steps []pipeline.Step) error {
	run := r.Events.NewRun()
	r.Diag.Info("starting run",
		zap.String("run_id", run.RunID()),
		zap.String("func_dir", params.FuncDir),
		zap.Int("steps", len(steps)),
		zap.Bool("dry_run", r.DryRun))

	if err := run.RunStart(&runlog.RunStart{
		FuncDir:     params.FuncDir,
		TrialCount:  params.TrialCount,
		TrialLength: params.TrialLength,
		Isotropic:   params.Isotropic,
		DryRun:      r.DryRun,
	}); err != nil {
		return err
	}

	var failed int
	var firstErr error
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			firstErr = err
			break
		}

		stepBanner.Fprintf(r.Progress, "[%d/%d] %s\n", i+1, len(steps), step.Name)
		fmt.Fprintf(r.Progress, "  %s\n", shellLine(step))

		if err := run.StepStart(&runlog.StepStart{Step: step.Name, Argv: step.Argv()}); err != nil {
			return err
		}

		if r.DryRun {
			if err := run.StepDone(&runlog.StepDone{Step: step.Name}); err != nil {
				return err
			}
			continue
		}

		result, err := r.Executor.ExecStep(ctx, step, params.FuncDir)
		done := &runlog.StepDone{
			Step:           step.Name,
			ExitCode:       result.ExitCode,
			DurationMicros: result.Duration.Microseconds(),
		}
		if err != nil {
			done.Error = err.Error()
		}
		if logErr := run.StepDone(done); logErr != nil {
			return logErr
		}

		if err != nil {
			failed++
			r.Diag.Warn("step failed",
				zap.String("run_id", run.RunID()),
				zap.String("step", step.Name),
				zap.Int("exit_code", result.ExitCode),
				zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("step %s: %w", step.Name, err)
			}
			if !r.KeepGoing {
				break
			}
			continue
		}

		r.Diag.Debug("step done",
			zap.String("run_id", run.RunID()),
			zap.String("step", step.Name),
			zap.Duration("duration", result.Duration))
	}

	done := &runlog.RunDone{Steps: len(steps), Failed: failed}
	if firstErr != nil {
		done.Error = firstErr.Error()
	}
	if err := run.RunDone(done); err != nil {
		return err
	}
	return firstErr
}

// shellLine formats a step the way it appears in a rendered script.
func shellLine(step pipeline.Step) string {
	line := step.Tool
	for _, arg := range step.Args {
		line += " " + arg
	}
	if step.StdoutFile != "" {
		line += " > " + step.StdoutFile
	}
	return line
}
