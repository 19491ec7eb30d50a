package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/anmitsu/go-shlex"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/epirun/epirun/core/pipeline"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	ConfigurationName = "config.yaml"
	RunLogsDirName    = "run_logs"
	ScriptsDirName    = "scripts"
	AppLogName        = "app.log"
	EnvFileName       = ".env"
)

type Configuration struct {
	configFs afero.Fs

	Tools    Tools    `json:"tools"`
	Pipeline Pipeline `json:"pipeline"`
	QC       QC       `json:"qc"`
}

// Tools locates the external toolchains. Empty values mean the tools are
// already on PATH.
type Tools struct {
	AFNIDir string `json:"afni_dir"`
	FSLDir  string `json:"fsl_dir"`
}

// Pipeline holds the tunable literal parameters of the preprocessing plan.
type Pipeline struct {
	BaseVolume         int     `json:"base_volume" validate:"gte=0"`
	CensorThreshold    float64 `json:"censor_threshold" validate:"gt=0,lte=1"`
	BandpassLo         float64 `json:"bandpass_lo" validate:"gte=0"`
	BandpassHi         float64 `json:"bandpass_hi" validate:"gtefield=BandpassLo"`
	BlurFWHM           float64 `json:"blur_fwhm" validate:"gt=0"`
	Template           string  `json:"template" validate:"required"`
	StepTimeoutMinutes int     `json:"step_timeout_minutes" validate:"gte=0"`

	// ExtraArgs appends tool arguments per step, written shell-style,
	// e.g. despike: "-nomask -NEW25".
	ExtraArgs map[string]string `json:"extra_args"`
}

// QC configures the checklist scan.
type QC struct {
	Root      string `json:"root" validate:"required"`
	ShowNewer bool   `json:"show_newer"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// Options translates the configuration into pipeline options. Extra
// arguments are tokenized with shell rules.
func (c *Configuration) Options() (pipeline.Options, error) {
	opts := pipeline.Options{
		BaseVolume:      c.Pipeline.BaseVolume,
		CensorThreshold: c.Pipeline.CensorThreshold,
		BandpassLo:      c.Pipeline.BandpassLo,
		BandpassHi:      c.Pipeline.BandpassHi,
		BlurFWHM:        c.Pipeline.BlurFWHM,
		Template:        c.Pipeline.Template,
	}

	for step, raw := range c.Pipeline.ExtraArgs {
		args, err := shlex.Split(raw, true)
		if err != nil {
			return pipeline.Options{}, fmt.Errorf("extra args for step %s: %w", step, err)
		}
		if len(args) == 0 {
			continue
		}
		if opts.ExtraArgs == nil {
			opts.ExtraArgs = make(map[string][]string)
		}
		opts.ExtraArgs[step] = args
	}

	return opts, nil
}

// StepTimeout returns the per-step execution bound, zero for none.
func (c *Configuration) StepTimeout() time.Duration {
	return time.Duration(c.Pipeline.StepTimeoutMinutes) * time.Minute
}

// ToolEnv returns environment entries exposing the configured toolchains,
// including a PATH that puts them in front of basePath.
func (c *Configuration) ToolEnv(basePath string) []string {
	var env []string
	var pathParts []string

	if dir := c.Tools.AFNIDir; dir != "" {
		env = append(env, "AFNIDIR="+dir)
		pathParts = append(pathParts, dir)
	}
	if dir := c.Tools.FSLDir; dir != "" {
		env = append(env, "FSLDIR="+dir)
		pathParts = append(pathParts, filepath.Join(dir, "bin"))
	}
	if len(pathParts) > 0 {
		env = append(env, "PATH="+strings.Join(append(pathParts, basePath), string(os.PathListSeparator)))
	}
	return env
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// CreateRunLog creates a run event log with the given name.
func (c *Configuration) CreateRunLog(name string) (afero.File, error) {
	return c.fs().Create(filepath.Join(RunLogsDirName, name))
}

// CreateScript creates a rendered pipeline script with the given name.
func (c *Configuration) CreateScript(name string) (afero.File, error) {
	return c.fs().OpenFile(filepath.Join(ScriptsDirName, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_RDONLY, 0600)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
