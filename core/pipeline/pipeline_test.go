package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testParams() Params {
	return Params{
		FuncDir:     "/archive/data/SPINS/data/nii/SPN01_CMH_0001_01",
		TrialCount:  4,
		TrialLength: 2.0,
		Isotropic:   3.0,
	}
}

func TestPlanOrder(t *testing.T) {
	steps, err := Plan(testParams(), DefaultOptions())
	assert.NoError(t, err)

	var names []string
	for _, s := range steps {
		names = append(names, s.Name)
	}

	// The order is the contract: each step reads the prefix written by the
	// previous one.
	assert.Equal(t, []string{
		"init",
		"deoblique",
		"reorient",
		"motioncorr",
		"despike",
		"tstat",
		"outcount",
		"censor",
		"scale",
		"linreg",
		"nonlinreg",
		"scrub",
		"filter",
		"lowpass",
		"smooth",
	}, names)

	assert.Equal(t, names, StepNames())
}

func TestPlanLiteralArgs(t *testing.T) {
	steps, err := Plan(testParams(), DefaultOptions())
	assert.NoError(t, err)

	byName := make(map[string]Step)
	for _, s := range steps {
		byName[s.Name] = s
	}

	assert.Equal(t, []string{"3dcalc", "-a", "func_raw.nii.gz[4..$]", "-expr", "a", "-prefix", "func_del.nii.gz"},
		byName["init"].Argv())

	assert.Contains(t, byName["reorient"].Args, "3")
	assert.Contains(t, byName["filter"].Args, "0.009")
	assert.Contains(t, byName["filter"].Args, "0.08")
	assert.Contains(t, byName["censor"].Args, "isnegative(a-0.1)")

	assert.Equal(t, "outcount.1D", byName["outcount"].StdoutFile)
	assert.Equal(t, "censor.1D", byName["censor"].StdoutFile)
}

func TestPlanKeepAllTrials(t *testing.T) {
	p := testParams()
	p.TrialCount = 0

	steps, err := Plan(p, DefaultOptions())
	assert.NoError(t, err)
	assert.Equal(t, "func_raw.nii.gz[0..$]", steps[0].Args[1])
}

func TestPlanExtraArgs(t *testing.T) {
	opts := DefaultOptions()
	opts.ExtraArgs = map[string][]string{"despike": {"-NEW"}}

	steps, err := Plan(testParams(), opts)
	assert.NoError(t, err)

	for _, s := range steps {
		if s.Name == "despike" {
			assert.Equal(t, "-NEW", s.Args[len(s.Args)-1])
			return
		}
	}
	t.Fatal("despike step missing")
}

func TestParamsValidate(t *testing.T) {
	cases := map[string]func(*Params){
		"empty dir":      func(p *Params) { p.FuncDir = "" },
		"negative count": func(p *Params) { p.TrialCount = -1 },
		"zero length":    func(p *Params) { p.TrialLength = 0 },
		"zero isotropic": func(p *Params) { p.Isotropic = 0 },
	}

	for tn, mutate := range cases {
		t.Run(tn, func(t *testing.T) {
			p := testParams()
			mutate(&p)
			_, err := Plan(p, DefaultOptions())
			assert.Error(t, err)
		})
	}

	assert.NoError(t, testParams().Validate())
}

func TestPlanArgsAreLiteral(t *testing.T) {
	steps, err := Plan(testParams(), DefaultOptions())
	assert.NoError(t, err)

	// No argument may smuggle in shell metacharacters that would change
	// meaning between direct execution and the rendered script.
	for _, s := range steps {
		for _, arg := range s.Args {
			assert.False(t, strings.ContainsAny(arg, ";|&<>`"), "step %s arg %q", s.Name, arg)
		}
	}
}
