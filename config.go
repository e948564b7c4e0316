package embedx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LaunchConfig holds the pre-launch settings of an instance.
type LaunchConfig struct {
	BundleID string            `yaml:"bundle_id" toml:"bundle_id"`
	URL      string            `yaml:"url" toml:"url"`
	Args     []string          `yaml:"args" toml:"args"`
	Options  map[string]string `yaml:"options" toml:"options"`
}

// Validate checks the bundle identifier.
func (c LaunchConfig) Validate() error {
	if strings.IndexFunc(c.BundleID, unicode.IsSpace) >= 0 {
		return fmt.Errorf("bundle_id %q contains whitespace", c.BundleID)
	}
	return nil
}

// LaunchOptions converts Options to the mapping RunEmbedded takes.
func (c LaunchConfig) LaunchOptions() map[string]any {
	if len(c.Options) == 0 {
		return nil
	}
	opts := make(map[string]any, len(c.Options))
	for k, v := range c.Options {
		opts[k] = v
	}
	return opts
}

// LoadLaunchConfig reads a LaunchConfig from a YAML or TOML file.
func LoadLaunchConfig(path string) (LaunchConfig, error) {
	var cfg LaunchConfig
	if err := LoadConfigFile(path, &cfg); err != nil {
		return LaunchConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return LaunchConfig{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFile decodes path into out, choosing the format by extension:
// .yaml and .yml use YAML, .toml uses TOML.
func LoadConfigFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	case ".toml":
		err = toml.Unmarshal(data, out)
	default:
		return fmt.Errorf("config load failed (%s): unsupported format", path)
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// Apply sets the bundle identifier and deep link from cfg. Empty fields are
// skipped.
func (i *Instance) Apply(cfg LaunchConfig) error {
	var errs []error
	if cfg.BundleID != "" {
		errs = append(errs, i.SetDataBundleID(cfg.BundleID))
	}
	if cfg.URL != "" {
		errs = append(errs, i.SetAbsoluteURL(cfg.URL))
	}
	return errors.Join(errs...)
}
