// Package config holds the viper-backed configuration singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/untoldecay/Branchless/internal/debug"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Should be
// called once at application startup.
//
// Precedence: environment (BRANCHLESS_*) > config file > defaults. The
// config file is the repo config (.git/branchless/config.yaml, found by
// walking up from CWD) if one exists, otherwise the user config
// (~/.config/branchless/config.yaml); the two are never merged.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// Walk up from CWD to find the repository-local config so that
	// commands work from subdirectories.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".git", "branchless", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "branchless", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file,
	// e.g. BRANCHLESS_MAIN_BRANCH, BRANCHLESS_ASCII_GLYPHS.
	v.SetEnvPrefix("BRANCHLESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("main-branch", "master")
	v.SetDefault("ascii-glyphs", false)
	v.SetDefault("debug", false)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		debug.Logf("loaded config from %s", v.ConfigFileUsed())
	} else {
		debug.Logf("no config.yaml found; using defaults and environment variables")
	}

	return nil
}

// MainBranch returns the configured main branch name, e.g. "master".
func MainBranch() string {
	if v == nil {
		return "master"
	}
	return v.GetString("main-branch")
}

// MainBranchRef returns the fully-qualified main branch reference.
func MainBranchRef() string {
	return "refs/heads/" + MainBranch()
}

// ASCIIGlyphs reports whether the user opted out of Unicode glyphs.
func ASCIIGlyphs() bool {
	return v != nil && v.GetBool("ascii-glyphs")
}

// Debug reports whether debug logging is enabled.
func Debug() bool {
	if v == nil {
		return os.Getenv("BRANCHLESS_DEBUG") != ""
	}
	return v.GetBool("debug")
}

// defaultFile is the starter config written by `init`.
type defaultFile struct {
	MainBranch  string `yaml:"main-branch"`
	ASCIIGlyphs bool   `yaml:"ascii-glyphs"`
}

// WriteDefault writes a starter config file if none exists yet.
func WriteDefault(path string, mainBranch string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(defaultFile{MainBranch: mainBranch})
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
