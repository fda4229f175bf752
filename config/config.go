/*
 * config.go, part of mdbench.
 *
 * Copyright 2024 The mdbench authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package config reads the options of the benchmark from a YAML or TOML file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rmera/mdbench/bench"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config contains the parameters of a benchmark. It can be obtained from a file with
// New, or by "hand", in which case the Check method should be used to check it.
type Config struct {
	// Topology is the .gro file with the atoms of the system.
	Topology string `yaml:"topology" toml:"topology"`

	// Trajectory is the trajectory file (.xtc, .dcd, possibly compressed). If empty,
	// the coordinates in the topology file are used as a one-frame trajectory.
	Trajectory string `yaml:"trajectory" toml:"trajectory"`

	// JSON prints the results also as JSON
	JSON bool `yaml:"json" toml:"json"`

	// Plot, if not empty, is the file where a plot of the run times is saved.
	Plot string `yaml:"plot" toml:"plot"`

	// LogLevel is the level for the logs: debug, info, warn or error.
	LogLevel string `yaml:"log-level" toml:"log-level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Topology: bench.DefaultTopology, Trajectory: bench.DefaultTrajectory, LogLevel: "info"}
}

// New opens and decodes the configuration file path. The format, YAML or TOML, is
// taken from the extension (.yaml, .yml or .toml). Fields missing in the file
// keep the values of Default. Unknown fields are an error. This function
// automatically calls the Check method.
func New(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Default()
	r := bufio.NewReader(f)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(c)
	case ".toml":
		var md toml.MetaData
		md, err = toml.NewDecoder(r).Decode(c)
		if err == nil && len(md.Undecoded()) > 0 {
			err = fmt.Errorf("unknown keys %v", md.Undecoded())
		}
	default:
		err = fmt.Errorf("unknown configuration format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	err = c.Check()
	if err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}
	return c, nil
}

// plotFormats are the extensions gonum/plot can save to.
var plotFormats = []string{".png", ".svg", ".pdf", ".eps", ".jpg", ".jpeg", ".tif", ".tiff"}

// Check checks if Config is correct. It returns an error if a field doesn't meet
// the requirements.
func (c *Config) Check() error {
	if c.Topology == "" {
		return fmt.Errorf("topology cannot be empty")
	}
	if ext := strings.ToLower(filepath.Ext(c.Topology)); ext != ".gro" {
		return fmt.Errorf("topology must be a .gro file, not %q", ext)
	}
	if c.Plot != "" {
		ext := strings.ToLower(filepath.Ext(c.Plot))
		found := false
		for _, v := range plotFormats {
			if v == ext {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("plot format %q not supported", ext)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the log level. An empty LogLevel means info.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
