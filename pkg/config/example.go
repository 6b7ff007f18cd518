package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// WriteExample writes cfg as a config.yaml document. Secrets are tagged
// yaml:"-" and never appear in the output.
func WriteExample(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
