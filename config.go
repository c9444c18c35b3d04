package pfdbg

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the optional .pfdbg.yaml configuration file: default
// variable values and breakpoints to install automatically on enable.
type Config struct {
	// BreakOnParsing seeds the break_on_parsing variable.
	BreakOnParsing *bool `yaml:"break_on_parsing,omitempty"`

	// ConfirmSubmatch is read from the file but nothing applies it: the
	// debugger registers no confirm_submatch variable, and the Submatch
	// Debug Driver's prompt defaults are fixed.
	ConfirmSubmatch *bool `yaml:"confirm_submatch,omitempty"`

	// Color is read from the file ("auto", "always" or "never") but nothing
	// applies it; the ANSI Writer always detects terminal support itself.
	Color string `yaml:"color,omitempty"`

	// HistoryFile overrides the default $HOME/.polyfile_history path.
	HistoryFile string `yaml:"history_file,omitempty"`

	// Breakpoints are spec strings installed on enable, in order, via the
	// same parser the REPL's `breakpoint` command uses.
	Breakpoints []string `yaml:"breakpoints,omitempty"`
}

// DefaultConfigNames are the filenames searched for, in order, at each
// directory level.
var DefaultConfigNames = []string{".pfdbg.yaml", ".pfdbg.yml"}

// LoadConfig finds and loads the nearest config file walking up from dir.
// A missing config is not an error to callers that treat absence as
// all-defaults; use FindConfig directly to distinguish "not found" from a
// parse failure.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up
// to the filesystem root.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for d := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(d, name)

			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(d)
		if parent == d {
			return "", ErrConfigNotFound
		}

		d = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
