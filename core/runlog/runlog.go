// Package runlog is a standardized event logging framework for pipeline runs.
//
// Events are written as newline delimited JSON so downstream tooling can
// stream a run log without a schema registry. Each run gets its own ID;
// every event carries it.
package runlog

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// EventRecorder is a callback that stores events in an external datastore.
type EventRecorder func(e *Event) error

// Event is a single entry in a run log. Exactly one of the payload fields
// is set, discriminated by Type.
type Event struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	RunID           string `json:"run_id"`
	Type            string `json:"type"`

	RunStart  *RunStart  `json:"run_start,omitempty"`
	StepStart *StepStart `json:"step_start,omitempty"`
	StepDone  *StepDone  `json:"step_done,omitempty"`
	RunDone   *RunDone   `json:"run_done,omitempty"`
}

// RunStart records the inputs a run was started with.
type RunStart struct {
	FuncDir     string  `json:"func_dir"`
	TrialCount  int     `json:"trial_count"`
	TrialLength float64 `json:"trial_length"`
	Isotropic   float64 `json:"isotropic"`
	DryRun      bool    `json:"dry_run,omitempty"`
}

// StepStart records one invocation about to execute.
type StepStart struct {
	Step string   `json:"step"`
	Argv []string `json:"argv"`
}

// StepDone records the outcome of one invocation.
type StepDone struct {
	Step           string `json:"step"`
	ExitCode       int    `json:"exit_code"`
	DurationMicros int64  `json:"duration_micros"`
	Error          string `json:"error,omitempty"`
}

// RunDone records the overall outcome.
type RunDone struct {
	Steps  int    `json:"steps"`
	Failed int    `json:"failed"`
	Error  string `json:"error,omitempty"`
}

const (
	TypeRunStart  = "run_start"
	TypeStepStart = "step_start"
	TypeStepDone  = "step_done"
	TypeRunDone   = "run_done"
)

// Logger captures run events.
type Logger struct {
	Record EventRecorder
}

// NewJSONLinesRecorder creates a Logger that exports events in newline
// delimited JSON object format.
func NewJSONLinesRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(e *Event) error {
			entry, err := json.Marshal(e)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewRun creates a logger bound to a fresh run ID.
func (l *Logger) NewRun() *RunLogger {
	return &RunLogger{Logger: l, runID: uuid.NewString()}
}

// RunLogger logs events with a shared run ID.
type RunLogger struct {
	*Logger
	runID string
}

// RunID returns the bound run ID.
func (r *RunLogger) RunID() string {
	return r.runID
}

func (r *RunLogger) record(e *Event) error {
	e.TimestampMicros = time.Now().UnixMicro()
	e.RunID = r.runID
	return r.Record(e)
}

func (r *RunLogger) RunStart(e *RunStart) error {
	return r.record(&Event{Type: TypeRunStart, RunStart: e})
}

func (r *RunLogger) StepStart(e *StepStart) error {
	return r.record(&Event{Type: TypeStepStart, StepStart: e})
}

func (r *RunLogger) StepDone(e *StepDone) error {
	return r.record(&Event{Type: TypeStepDone, StepDone: e})
}

func (r *RunLogger) RunDone(e *RunDone) error {
	return r.record(&Event{Type: TypeRunDone, RunDone: e})
}

// ReadJSONLinesLog parses a newline delimited JSON run log.
func ReadJSONLinesLog(r io.Reader, handler func(e *Event)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			return err
		}
		handler(&event)
	}
	return nil
}
