package runlog

import (
	"strings"
	"time"
)

// Report aggregates a run log stream into per-run summaries.
type Report struct {
	Events int             `json:"events"`
	Runs   map[string]*Run `json:"runs"`
}

// Run summarizes a single pipeline run.
type Run struct {
	FuncDir  string   `json:"func_dir,omitempty"`
	DryRun   bool     `json:"dry_run,omitempty"`
	Steps    []string `json:"steps,omitempty"`
	Failures []string `json:"failures,omitempty"`
	// TotalDuration is the wall time summed across finished steps.
	TotalDuration time.Duration `json:"total_duration_ns"`
	Completed     bool          `json:"completed"`
	Error         string        `json:"error,omitempty"`
}

func (r *Report) run(id string) *Run {
	if r.Runs == nil {
		r.Runs = make(map[string]*Run)
	}
	run, ok := r.Runs[id]
	if !ok {
		run = &Run{}
		r.Runs[id] = run
	}
	return run
}

// Update folds one event into the report. Intended for use with
// ReadJSONLinesLog.
func (r *Report) Update(e *Event) {
	r.Events++
	run := r.run(e.RunID)

	switch {
	case e.Type == TypeRunStart && e.RunStart != nil:
		run.FuncDir = e.RunStart.FuncDir
		run.DryRun = e.RunStart.DryRun
	case e.Type == TypeStepStart && e.StepStart != nil:
		run.Steps = append(run.Steps, strings.Join(e.StepStart.Argv, " "))
	case e.Type == TypeStepDone && e.StepDone != nil:
		run.TotalDuration += time.Duration(e.StepDone.DurationMicros) * time.Microsecond
		if e.StepDone.ExitCode != 0 || e.StepDone.Error != "" {
			run.Failures = append(run.Failures, e.StepDone.Step)
		}
	case e.Type == TypeRunDone && e.RunDone != nil:
		run.Completed = e.RunDone.Failed == 0 && e.RunDone.Error == ""
		run.Error = e.RunDone.Error
	}
}
