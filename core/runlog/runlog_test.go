package runlog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJSONLinesRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	run := NewJSONLinesRecorder(&buf).NewRun()
	assert.NotEmpty(t, run.RunID())

	assert.NoError(t, run.RunStart(&RunStart{FuncDir: "/data/sess", TrialCount: 4, TrialLength: 2, Isotropic: 3}))
	assert.NoError(t, run.StepStart(&StepStart{Step: "deoblique", Argv: []string{"3dWarp", "-deoblique"}}))
	assert.NoError(t, run.StepDone(&StepDone{Step: "deoblique", ExitCode: 0, DurationMicros: 1500}))
	assert.NoError(t, run.RunDone(&RunDone{Steps: 1}))

	// One JSON object per line.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)

	var got []*Event
	assert.NoError(t, ReadJSONLinesLog(&buf, func(e *Event) {
		got = append(got, e)
	}))
	assert.Len(t, got, 4)

	assert.Equal(t, TypeRunStart, got[0].Type)
	assert.Equal(t, "/data/sess", got[0].RunStart.FuncDir)
	assert.Equal(t, run.RunID(), got[0].RunID)
	assert.Equal(t, TypeStepDone, got[2].Type)
	assert.Equal(t, int64(1500), got[2].StepDone.DurationMicros)
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	run := NewJSONLinesRecorder(&buf).NewRun()

	assert.NoError(t, run.RunStart(&RunStart{FuncDir: "/data/sess"}))
	assert.NoError(t, run.StepStart(&StepStart{Step: "init", Argv: []string{"3dcalc", "-a", "func_raw.nii.gz"}}))
	assert.NoError(t, run.StepDone(&StepDone{Step: "init", DurationMicros: 1000}))
	assert.NoError(t, run.StepStart(&StepStart{Step: "deoblique", Argv: []string{"3dWarp"}}))
	assert.NoError(t, run.StepDone(&StepDone{Step: "deoblique", ExitCode: 1, Error: "exit status 1", DurationMicros: 2000}))
	assert.NoError(t, run.RunDone(&RunDone{Steps: 2, Failed: 1, Error: "step deoblique failed"}))

	var report Report
	assert.NoError(t, ReadJSONLinesLog(&buf, report.Update))

	assert.Equal(t, 6, report.Events)
	summary := report.Runs[run.RunID()]
	assert.NotNil(t, summary)
	assert.Equal(t, "/data/sess", summary.FuncDir)
	assert.Equal(t, []string{"3dcalc -a func_raw.nii.gz", "3dWarp"}, summary.Steps)
	assert.Equal(t, []string{"deoblique"}, summary.Failures)
	assert.Equal(t, 3*time.Millisecond, summary.TotalDuration)
	assert.False(t, summary.Completed)
	assert.Equal(t, "step deoblique failed", summary.Error)
}

func TestReportIgnoresMalformedEvents(t *testing.T) {
	var report Report
	report.Update(&Event{Type: TypeStepDone, RunID: "r1"}) // missing payload

	assert.Equal(t, 1, report.Events)
	assert.Empty(t, report.Runs["r1"].Failures)
}
