/*
Package config reads the optional YAML settings file.
*/
package config

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"pstatefreq/internal/output"
	"pstatefreq/internal/util"

	"gopkg.in/yaml.v2"
)

// EnvFile names the environment variable that points at the settings file.
const EnvFile = "PSTATE_FREQUENCY_CONFIG"

// DefaultFile is read when present and no other file was named.
const DefaultFile = "/etc/pstate-frequency.yaml"

// Frequency sources for realtime core frequencies.
const (
	SourceCPUInfo = "cpuinfo"
	SourceSysfs   = "sysfs"
)

// Log configures log output.
type Log struct {
	File   string `yaml:"file"`
	Syslog bool   `yaml:"syslog"`
}

// Config holds the file settings. Command line options take precedence.
type Config struct {
	SysfsRoot       string           `yaml:"sysfs_root"`
	Color           output.ColorMode `yaml:"color"`
	FrequencySource string           `yaml:"frequency_source"`
	Export          string           `yaml:"export"`
	Log             Log              `yaml:"log"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{
		SysfsRoot:       "/",
		Color:           output.ColorNever,
		FrequencySource: SourceCPUInfo,
	}
}

// Locate returns the settings file to read: flagValue, then the
// environment, then DefaultFile if it exists. Empty means no file.
func Locate(flagValue string) (string, error) {
	if flagValue != "" {
		return util.AbsPath(flagValue)
	}
	if env := os.Getenv(EnvFile); env != "" {
		return util.AbsPath(env)
	}
	exists, err := util.FileExists(DefaultFile)
	if err != nil {
		return "", err
	}
	if exists {
		return DefaultFile, nil
	}
	return "", nil
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(yamlFile, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	cfg.Export = util.ExpandUser(cfg.Export)
	cfg.Log.File = util.ExpandUser(cfg.Log.File)
	slog.Debug("loaded config file", slog.String("path", path))
	return cfg, nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	if c.SysfsRoot == "" {
		return fmt.Errorf("sysfs_root must not be empty")
	}
	if !slices.Contains([]output.ColorMode{output.ColorNever, output.ColorAuto, output.ColorAlways}, c.Color) {
		return fmt.Errorf("color must be one of never, auto, always: %q", c.Color)
	}
	if !slices.Contains([]string{SourceCPUInfo, SourceSysfs}, c.FrequencySource) {
		return fmt.Errorf("frequency_source must be one of %s, %s: %q", SourceCPUInfo, SourceSysfs, c.FrequencySource)
	}
	return nil
}
