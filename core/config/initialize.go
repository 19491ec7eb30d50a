package config

import (
	"log"
	"path/filepath"

	"github.com/spf13/afero"
)

// Initialize scaffolds a study configuration in the given directory.
// Existing files are left alone so it is safe to re-run.
func Initialize(fsys afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	configPath := filepath.Join(dir, ConfigurationName)
	if exists, err := afero.Exists(fsys, configPath); err != nil {
		return nil, err
	} else if exists {
		logger.Printf("Found existing %s, keeping it", ConfigurationName)
	} else {
		logger.Printf("Writing %s", ConfigurationName)
		if err := afero.WriteFile(fsys, configPath, defaultConfigData, 0644); err != nil {
			return nil, err
		}
	}

	for _, sub := range []string{RunLogsDirName, ScriptsDirName} {
		logger.Printf("Creating %s/", sub)
		if err := fsys.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, err
		}
	}

	return Load(fsys, dir)
}
