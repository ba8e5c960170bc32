package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats a sensor process may write on stdout.
const (
	FormatNMEA   = "nmea"
	FormatNDJSON = "ndjson"
)

// ProcessConfig describes an allow-listed sensor command.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Format      string            `yaml:"format" json:"format"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of sensors.yaml.
type ConfigFile struct {
	Sensors []ProcessConfig `yaml:"sensors" json:"sensors"`
}

// LoadSensors reads a configuration file (YAML or JSON) and returns the
// sensors keyed by name. A missing file means no sensors are configured.
func LoadSensors(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ProcessConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read sensors config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	sensors := make(map[string]ProcessConfig)
	for _, s := range cfg.Sensors {
		if s.Name == "" {
			continue
		}
		if s.Format == "" {
			s.Format = FormatNDJSON
		}
		if s.Format != FormatNMEA && s.Format != FormatNDJSON {
			return nil, fmt.Errorf("sensor %s: unknown format %q", s.Name, s.Format)
		}
		sensors[s.Name] = s
	}
	return sensors, nil
}
