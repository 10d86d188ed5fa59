// Package config loads clargs.yaml, the optional settings file shared by the
// CLI commands and the HTTP service.
//
// A config file looks like:
//
//	log_level: debug
//	format: json
//	data_dir: ./data
//	addr: localhost:8080
//	save_reports: true
//
// Every field is optional. Missing fields keep the values from Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileNames are the config file names searched for by Find, in order.
var FileNames = []string{"clargs.yaml", "clargs.yml"}

var validate = validator.New()

// Config holds the settings a config file may provide.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Format is the extract output format. Empty means table on a
	// terminal and JSON otherwise.
	Format string `yaml:"format" validate:"omitempty,oneof=table json yaml"`

	// DataDir holds saved reports and the extraction history.
	DataDir string `yaml:"data_dir" validate:"required"`

	// Addr is the listen address for serve.
	Addr string `yaml:"addr" validate:"hostname_port"`

	// SaveReports makes extract and the HTTP service store every successful
	// extraction.
	SaveReports bool `yaml:"save_reports"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		DataDir:  "./data",
		Addr:     ":8080",
	}
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses config content on top of Default.
// The path argument is used only for error messages.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	msgs := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		msgs = append(msgs, yamlName(ve.Field())+": "+describe(ve))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Find searches for a config file starting from dir and walking up to
// parent directories. It returns "" and a nil error when none exists.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func yamlName(field string) string {
	switch field {
	case "LogLevel":
		return "log_level"
	case "DataDir":
		return "data_dir"
	case "SaveReports":
		return "save_reports"
	default:
		return strings.ToLower(field)
	}
}

func describe(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "hostname_port":
		return "must be host:port"
	default:
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
