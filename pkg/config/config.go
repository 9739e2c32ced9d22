// Package config loads the project configuration from a YAML file.
package config

import (
	"os"

	"github.com/thorn-jmh/errorst"
	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned when the configuration file cannot be read.
var ErrNoConfig = errorst.NewError("configuration file not readable")

// Config holds the project paths and names used by the conversion
// commands. All fields are optional; converters work on explicit paths
// when no configuration is present.
type Config struct {
	ProjectStorePath string `yaml:"ProjectStorePath"`
	MasterPrgName    string `yaml:"MasterPrgName"`
	TestPrgName      string `yaml:"TestPrgName"`
	ImportXMLPath    string `yaml:"toImportXMLPath"`
	AmiHostPath      string `yaml:"AmiHostPath"`
}

// Load reads the YAML configuration at path. The TIA_AMI_HOST_PATH
// environment variable overrides the AmiHostPath entry when set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorst.Wrap(ErrNoConfig, "cannot read %s: %v", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errorst.Wrap(err, "cannot parse %s", path)
	}
	if env := os.Getenv("TIA_AMI_HOST_PATH"); env != "" {
		cfg.AmiHostPath = env
	}
	return &cfg, nil
}
