// Package config loads share-behavior configuration from YAML, in the
// same load/validate shape the teacher's gitp4transfer config package
// uses for its branch-mapping configuration.
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// DefaultAppName names the share's on-disk artifacts: "<app>-share-readme.txt",
// ".<app>/static", ".<app>/database", ".<app>/files", ".<app>/transactions".
const DefaultAppName = "filemesh"

// ShareConfig configures a single share's behavior.
type ShareConfig struct {
	// AppName names the on-disk artifacts (readme, dot-directory).
	AppName string `yaml:"app_name"`
	// StrangePaths disables the extra reserved-character rejection
	// ('\\', ':', '*', '?', '"', '<', '>', '|') beyond NUL and '/'.
	StrangePaths bool `yaml:"strange_paths"`
	// FsyncLog governs whether the WAL fsyncs each log file (and the
	// log directory) before/after applying an operation.
	FsyncLog bool `yaml:"fsync_log"`
	// ReservedNames lists additional path segment names that may not be
	// used as a file/directory Name, beyond the built-in "splits".
	ReservedNames []string `yaml:"reserved_names"`
}

// Default returns the configuration used when no config file is given.
func Default() *ShareConfig {
	return &ShareConfig{
		AppName:  DefaultAppName,
		FsyncLog: true,
	}
}

// Unmarshal parses YAML config bytes, applying defaults for anything
// left unset.
func Unmarshal(content []byte) (*ShareConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. make sure to use 'single quotes' around strings with special characters", err.Error())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile loads and parses a config file. A missing file is not
// an error: the default configuration is returned instead, since most
// shares never need a config file.
func LoadConfigFile(filename string) (*ShareConfig, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	cfg, err := LoadConfigString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	return cfg, nil
}

// LoadConfigString parses a config document already read into memory.
func LoadConfigString(content []byte) (*ShareConfig, error) {
	return Unmarshal(content)
}

func (c *ShareConfig) validate() error {
	if c.AppName == "" {
		return fmt.Errorf("app_name must not be empty")
	}
	for _, n := range c.ReservedNames {
		if n == "" {
			return fmt.Errorf("reserved_names entries must not be empty")
		}
	}
	return nil
}
