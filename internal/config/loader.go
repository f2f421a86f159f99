package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

// ProjectConfigFile is the name of the project-level config file
const ProjectConfigFile = "schemadoc.yaml"

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	dir    string
}

// NewLoader creates a new configuration loader that searches for the
// project config starting at the working directory.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// WithDir sets the directory the project config search starts from.
func (l *Loader) WithDir(dir string) *Loader {
	l.dir = dir
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. Project config (schemadoc.yaml in the start directory or its parents)
// 3. The explicit file, when path is non-empty
//
// Each file only overrides the keys it sets. A missing explicit file is an
// error; an unreadable project config is logged and skipped.
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if err := applyFile(config, projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if path != "" {
		if err := applyFile(config, path); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", slog.String("path", path))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// findProjectConfig searches for schemadoc.yaml in the start directory and
// its parents
func (l *Loader) findProjectConfig() string {
	dir := l.dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
