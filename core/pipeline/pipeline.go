// Package pipeline models the fixed functional preprocessing sequence.
//
// The sequence is a flat, ordered list of external AFNI/FSL invocations with
// literal arguments. Every step reads the prefix written by the step before
// it, so the order is total and immutable.
package pipeline

import (
	"fmt"
	"strconv"
)

// Params holds the positional inputs baked into a rendered pipeline: the
// functional data directory, the number of leading trials to discard, the
// trial length in seconds, and the target isotropic voxel dimension in mm.
type Params struct {
	FuncDir     string
	TrialCount  int
	TrialLength float64
	Isotropic   float64
}

// Validate checks Params for basic semantic errors.
func (p Params) Validate() error {
	switch {
	case p.FuncDir == "":
		return fmt.Errorf("data path must not be empty")
	case p.TrialCount < 0:
		return fmt.Errorf("trial count must be >= 0, got %d", p.TrialCount)
	case p.TrialLength <= 0:
		return fmt.Errorf("trial length must be > 0, got %v", p.TrialLength)
	case p.Isotropic <= 0:
		return fmt.Errorf("isotropic dimension must be > 0, got %v", p.Isotropic)
	}
	return nil
}

// Options tune the literal arguments of individual steps. The zero value is
// not useful; start from DefaultOptions.
type Options struct {
	// BaseVolume is the volume index motion correction registers to.
	BaseVolume int
	// CensorThreshold is the outlier fraction above which a TR is censored.
	CensorThreshold float64
	// BandpassLo and BandpassHi bound the temporal filter in Hz.
	BandpassLo float64
	BandpassHi float64
	// BlurFWHM is the target spatial smoothing kernel in mm.
	BlurFWHM float64
	// Template is the anatomical template for nonlinear registration.
	Template string
	// ExtraArgs appends tool arguments per step name.
	ExtraArgs map[string][]string
}

// DefaultOptions returns the literal parameters the generated scripts have
// always used.
func DefaultOptions() Options {
	return Options{
		BaseVolume:      0,
		CensorThreshold: 0.1,
		BandpassLo:      0.009,
		BandpassHi:      0.08,
		BlurFWHM:        6.0,
		Template:        "MNI152_T1_2mm_brain",
	}
}

// Step is a single external invocation: a tool and its literal arguments.
// There is no branching; a step either runs or the pipeline stops.
type Step struct {
	// Name is the short stage name, e.g. "motioncorr".
	Name string
	// Tool is argv[0].
	Tool string
	// Args are the remaining literal arguments.
	Args []string
	// StdoutFile, when set, names a file the step's standard output is
	// written to (the shell script renders this as a redirection).
	StdoutFile string
	// Comment is the one-line description rendered above the invocation.
	Comment string
}

// Argv returns the full argument vector including the tool.
func (s Step) Argv() []string {
	return append([]string{s.Tool}, s.Args...)
}

// Plan returns the fixed ordered step list for the given inputs. The order
// mirrors the generated script line for line; callers must not reorder it.
func Plan(p Params, opts Options) ([]Step, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	iso := trimFloat(p.Isotropic)
	steps := []Step{
		{
			Name:    "init",
			Tool:    "3dcalc",
			Args:    []string{"-a", fmt.Sprintf("func_raw.nii.gz[%d..$]", p.TrialCount), "-expr", "a", "-prefix", "func_del.nii.gz"},
			Comment: fmt.Sprintf("discard the first %d pre-steady-state trials", p.TrialCount),
		},
		{
			Name:    "deoblique",
			Tool:    "3dWarp",
			Args:    []string{"-deoblique", "-quintic", "-prefix", "func_ob.nii.gz", "func_del.nii.gz"},
			Comment: "deoblique the functional data",
		},
		{
			Name:    "reorient",
			Tool:    "3dresample",
			Args:    []string{"-orient", "RAI", "-dxyz", iso, iso, iso, "-prefix", "func_rs.nii.gz", "-inset", "func_ob.nii.gz"},
			Comment: fmt.Sprintf("reorient to RAI at %s mm isotropic", iso),
		},
		{
			Name:    "motioncorr",
			Tool:    "3dvolreg",
			Args:    []string{"-prefix", "func_mc.nii.gz", "-base", strconv.Itoa(opts.BaseVolume), "-twopass", "-Fourier", "-zpad", "2", "-1Dfile", "motion.1D", "func_rs.nii.gz"},
			Comment: "correct head motion, write motion parameters",
		},
		{
			Name:    "despike",
			Tool:    "3dDespike",
			Args:    []string{"-prefix", "func_ds.nii.gz", "-ssave", "spikes.nii.gz", "func_mc.nii.gz"},
			Comment: "remove time series spikes",
		},
		{
			Name:    "tstat",
			Tool:    "3dTstat",
			Args:    []string{"-mean", "-prefix", "func_mean.nii.gz", "func_ds.nii.gz"},
			Comment: "compute the temporal mean image",
		},
		{
			Name:       "outcount",
			Tool:       "3dToutcount",
			Args:       []string{"-automask", "-fraction", "func_ds.nii.gz"},
			StdoutFile: "outcount.1D",
			Comment:    "per-TR outlier voxel fraction",
		},
		{
			Name:       "censor",
			Tool:       "1deval",
			Args:       []string{"-a", "outcount.1D", "-expr", fmt.Sprintf("isnegative(a-%s)", trimFloat(opts.CensorThreshold))},
			StdoutFile: "censor.1D",
			Comment:    "censor TRs above the outlier threshold",
		},
		{
			Name:    "scale",
			Tool:    "3dcalc",
			Args:    []string{"-a", "func_ds.nii.gz", "-b", "func_mean.nii.gz", "-expr", "(a/b)*1000", "-prefix", "func_scaled.nii.gz"},
			Comment: "grand mean scale to 1000",
		},
		{
			Name:    "linreg",
			Tool:    "flirt",
			Args:    []string{"-in", "func_mean.nii.gz", "-ref", "anat_T1_brain.nii.gz", "-omat", "mat_EPI_to_T1.mat", "-dof", "6", "-cost", "mutualinfo"},
			Comment: "linear EPI to T1 registration",
		},
		{
			Name:    "nonlinreg",
			Tool:    "fnirt",
			Args:    []string{"--in=anat_T1.nii.gz", "--aff=mat_T1_to_TAL.mat", "--cout=warp_T1_to_TAL.nii.gz", "--config=" + opts.Template},
			Comment: "nonlinear T1 to template registration",
		},
		{
			Name:    "scrub",
			Tool:    "3dTproject",
			Args:    []string{"-input", "func_scaled.nii.gz", "-censor", "censor.1D", "-cenmode", "NTRP", "-prefix", "func_scrubbed.nii.gz"},
			Comment: "interpolate over censored TRs",
		},
		{
			Name:    "filter",
			Tool:    "3dBandpass",
			Args:    []string{"-prefix", "func_filt.nii.gz", "-dt", trimFloat(p.TrialLength), "-ort", "motion.1D", "-band", trimFloat(opts.BandpassLo), trimFloat(opts.BandpassHi), "func_scrubbed.nii.gz"},
			Comment: "regress motion, bandpass filter",
		},
		{
			Name:    "lowpass",
			Tool:    "3dTsmooth",
			Args:    []string{"-prefix", "func_lp.nii.gz", "-hamming", "5", "func_filt.nii.gz"},
			Comment: "temporal low-pass",
		},
		{
			Name:    "smooth",
			Tool:    "3dBlurToFWHM",
			Args:    []string{"-prefix", "func_sm.nii.gz", "-FWHM", trimFloat(opts.BlurFWHM), "-input", "func_lp.nii.gz"},
			Comment: fmt.Sprintf("smooth to %s mm FWHM", trimFloat(opts.BlurFWHM)),
		},
	}

	for i, step := range steps {
		if extra := opts.ExtraArgs[step.Name]; len(extra) > 0 {
			steps[i].Args = append(steps[i].Args, extra...)
		}
	}

	return steps, nil
}

// StepNames returns the stage names in plan order.
func StepNames() []string {
	steps, err := Plan(Params{FuncDir: ".", TrialLength: 2, Isotropic: 3}, DefaultOptions())
	if err != nil {
		panic(err) // static plan, should never happen
	}

	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Name)
	}
	return names
}

// trimFloat formats a float without trailing zeros, matching how the
// generated scripts have always written literals (3, 0.08, 6).
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
