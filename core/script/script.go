// Package script renders a pipeline plan as a POSIX shell script.
//
// The rendered script is the portable artifact: a flat list of tool
// invocations with literal arguments that runs the same sequence the runner
// executes directly. Rendering is deterministic so scripts can be diffed and
// pinned by golden tests.
package script

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/epirun/epirun/core/pipeline"
)

const header = `#!/bin/sh
# Functional preprocessing pipeline, generated by epirun.
#
# Baked-in positional inputs:
#   data path:       {{.Params.FuncDir}}
#   trial count:     {{.Params.TrialCount}}
#   trial length:    {{.Params.TrialLength}}s
#   isotropic dims:  {{.Params.Isotropic}}mm

cd {{quote .Params.FuncDir}}
{{range .Steps}}
# {{.Comment}}
{{command .}}
{{end}}`

var scriptTemplate = template.Must(template.New("script").Funcs(template.FuncMap{
	"quote":   quote,
	"command": renderCommand,
}).Parse(header))

// Render writes the shell script for the plan to w.
func Render(w io.Writer, params pipeline.Params, steps []pipeline.Step) error {
	return scriptTemplate.Execute(w, struct {
		Params pipeline.Params
		Steps  []pipeline.Step
	}{params, steps})
}

// RenderString renders the shell script for the plan.
func RenderString(params pipeline.Params, steps []pipeline.Step) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, params, steps); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func renderCommand(s pipeline.Step) string {
	parts := make([]string, 0, len(s.Args)+3)
	for _, arg := range s.Argv() {
		parts = append(parts, quote(arg))
	}
	if s.StdoutFile != "" {
		parts = append(parts, ">", quote(s.StdoutFile))
	}
	return strings.Join(parts, " ")
}

// bareWordRe matches arguments that are safe to emit unquoted.
var bareWordRe = regexp.MustCompile(`^[A-Za-z0-9_.,:=/+@%-]+$`)

// quote single-quotes an argument unless it is a bare word. Embedded single
// quotes are closed, escaped, and reopened per POSIX sh rules.
func quote(s string) string {
	if bareWordRe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Filename returns the conventional script name for the given inputs,
// e.g. proc_rest.sh.
func Filename(stage string) string {
	if stage == "" {
		stage = "rest"
	}
	return fmt.Sprintf("proc_%s.sh", stage)
}
