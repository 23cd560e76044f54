// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package config loads edfkit configuration. Defaults are applied first,
// then the YAML file (if any), then command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the edfkit configuration.
type Config struct {
	Log    Log    `yaml:"log"`
	Export Export `yaml:"export"`
	Write  Write  `yaml:"write"`
}

// Log configures diagnostics output.
type Log struct {
	// Level is a zerolog level name: trace, debug, info, warn, error, disabled.
	Level string `yaml:"level"`
	// Format is empty (autodetect colour), color, text or json.
	Format string `yaml:"format"`
	// Output is stderr or stdout.
	Output string `yaml:"output"`
}

// Export configures the read command output.
type Export struct {
	Format      string `yaml:"format"`      // csv or cbor
	Compression string `yaml:"compression"` // none, zstd or lz4
}

// Write configures the write command.
type Write struct {
	// PhysicalMax is the saturation level; 0 derives it from the data.
	PhysicalMax float64 `yaml:"physical_max"`
	SubjectID   string  `yaml:"subject_id"`
	RecordingID string  `yaml:"recording_id"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: Log{
			Level:  "info",
			Output: "stderr",
		},
		Export: Export{
			Format:      "csv",
			Compression: "none",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := Decode(bytes.NewReader(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg and validates the result. Unknown
// keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.Validate()
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "", "color", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	switch c.Log.Output {
	case "stderr", "stdout":
	default:
		return fmt.Errorf("log.output: unknown output %q", c.Log.Output)
	}
	switch c.Export.Format {
	case "csv", "cbor":
	default:
		return fmt.Errorf("export.format: unknown format %q", c.Export.Format)
	}
	switch c.Export.Compression {
	case "none", "zstd", "lz4":
	default:
		return fmt.Errorf("export.compression: unknown compression %q", c.Export.Compression)
	}
	if c.Write.PhysicalMax < 0 {
		return fmt.Errorf("write.physical_max: must not be negative")
	}
	return nil
}
