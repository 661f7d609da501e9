package cmd

import (
	"os"
	"path/filepath"

	"github.com/ethpandaops/labdesc/pkg/config"
)

// loadConfigOrDefaults loads the config from cfgPath, $CONFIG_PATH or
// ./config.yaml, falling back to defaults when none exists.
func loadConfigOrDefaults(cfgPath string) (*config.Config, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return config.Load(envPath)
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		return config.Load("config.yaml")
	}

	return config.Default(), nil
}

// descriptorPath turns a scenario directory into its descriptor path and
// leaves file paths untouched.
func descriptorPath(path, descriptorName string) string {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return filepath.Join(path, descriptorName)
	}

	return path
}
