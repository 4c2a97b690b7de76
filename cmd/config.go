package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/grovetools/compass/pkg/state"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

// ConfigFileName is the name of the project config file.
const ConfigFileName = "compass.yml"

// CompassConfig defines the structure of compass.yml.
type CompassConfig struct {
	LogLevel string            `yaml:"log_level,omitempty"`
	Store    state.StoreConfig `yaml:"store"`
	Render   RenderConfig      `yaml:"render"`
}

// RenderConfig controls terminal output of cards.
type RenderConfig struct {
	Width int   `yaml:"width,omitempty"`
	Color *bool `yaml:"color,omitempty"` // nil = color when stdout is a terminal
}

func defaultConfig() *CompassConfig {
	return &CompassConfig{
		LogLevel: "warn",
		Store:    state.StoreConfig{Backend: state.BackendFile},
		Render:   RenderConfig{Width: 72},
	}
}

// findConfigFile looks for compass.yml in the working directory and each
// parent up to the project root, then in the user config directory. It
// returns "" when there is none.
func findConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current directory: %w", err)
	}
	root, err := state.ProjectRoot()
	if err != nil {
		return "", err
	}

	var candidates []string
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidates = append(candidates, filepath.Join(dir, ConfigFileName))
		if dir == root || filepath.Dir(dir) == dir {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "compass", ConfigFileName))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// loadConfig reads the config at path, or the discovered config when path is
// empty. Missing files yield the defaults.
func loadConfig(path string) (*CompassConfig, error) {
	cfg := defaultConfig()

	if path == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, err
		}
		if found == "" {
			return cfg, nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration from %s: %w", path, err)
	}
	return cfg, nil
}
