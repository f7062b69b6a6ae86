package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables read by the CLI.
const (
	ConfigPathEnv = "FDP_CONFIG_PATH"
	HomeEnv       = "FDP_HOME"
	PassphraseEnv = "FDP_PASSPHRASE"
)

// GetDefaults resolves config_path, base_dir and log_dir. FDP_CONFIG_PATH
// and FDP_HOME win when set; otherwise the config lives in
// ~/.config/fdp.toml and data under ~/.local/share/fdp.
func GetDefaults() (map[string]string, error) {
	configPath, err := fromEnvOrHome(ConfigPathEnv, ".config", "fdp.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := fromEnvOrHome(HomeEnv, ".local", "share", "fdp")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// fromEnvOrHome returns $env, or the path rel below the home directory.
func fromEnvOrHome(env string, rel ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving default for %s: %w", env, err)
	}
	return filepath.Join(append([]string{home}, rel...)...), nil
}
