package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Environment variables that override the configured tool directories.
// Site-specific wrappers (HPC module systems) set these per machine.
const (
	EnvAFNIDir = "EPIRUN_AFNI_DIR"
	EnvFSLDir  = "EPIRUN_FSL_DIR"
)

// Load loads the configuration from the directory.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := afero.ReadFile(fsys, filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, err
	}
	out.configFs = afero.NewBasePathFs(fsys, path)

	applyEnvOverrides(fsys, path, &out)

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// applyEnvOverrides folds a study-local .env file and the process
// environment into the tool directories. The .env file never wins over
// variables already set in the environment.
func applyEnvOverrides(fsys afero.Fs, dir string, c *Configuration) {
	envPath := filepath.Join(dir, EnvFileName)
	if ok, _ := afero.Exists(fsys, envPath); ok {
		if contents, err := afero.ReadFile(fsys, envPath); err == nil {
			if vars, err := godotenv.Unmarshal(string(contents)); err == nil {
				for key, value := range vars {
					if _, present := os.LookupEnv(key); !present {
						os.Setenv(key, value)
					}
				}
			}
		}
	}

	if override := os.Getenv(EnvAFNIDir); override != "" {
		c.Tools.AFNIDir = override
	}
	if override := os.Getenv(EnvFSLDir); override != "" {
		c.Tools.FSLDir = override
	}
}
