/*
Package config builds the run configuration for rxcovid.

A Config is assembled once, before any work starts, from the built-in defaults,
an optional YAML file and RXCOVID_* environment variables (optionally loaded
from a .env file). Command-line flags are applied last by the caller. After
Validate succeeds the value is treated as read-only.
*/
package config

/*
rxcovid — COVID-19 threat domain feed exporter for SIEM reference sets
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/x-stp/rxcovid/internal/feed"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "RXCOVID_"

const (
	DefaultOutputDir      = "output"
	DefaultOutputFile     = "covid_domains.txt"
	DefaultRequestTimeout = 5 * time.Minute
)

// Config is the resolved configuration of one run.
type Config struct {
	ListingURL string `yaml:"listing_url"`
	Prefix     string `yaml:"prefix"`
	Exclude    string `yaml:"exclude"`

	OutputDir    string `yaml:"output_dir"`
	OutputFile   string `yaml:"output_file"`
	WorkDir      string `yaml:"work_dir"`
	Prepend      bool   `yaml:"prepend"`
	KeepDownload bool   `yaml:"keep_download"`

	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxPayloadSize    int64         `yaml:"max_payload_size"`

	MetricsFile string `yaml:"metrics_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListingURL:     feed.DefaultListingURL,
		Prefix:         feed.DefaultNamePrefix,
		Exclude:        feed.DefaultExcludedClassification,
		OutputDir:      DefaultOutputDir,
		OutputFile:     DefaultOutputFile,
		WorkDir:        filepath.Join(os.TempDir(), "rxcovid"),
		RequestTimeout: DefaultRequestTimeout,
		MaxPayloadSize: feed.DefaultMaxPayloadSize,
	}
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file keep their value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// ApplyEnv overlays RXCOVID_* variables found through lookup (usually os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("LISTING_URL", &c.ListingURL)
	str("PREFIX", &c.Prefix)
	str("EXCLUDE", &c.Exclude)
	str("OUTPUT_DIR", &c.OutputDir)
	str("OUTPUT_FILE", &c.OutputFile)
	str("WORK_DIR", &c.WorkDir)
	str("METRICS_FILE", &c.MetricsFile)

	var errs []error
	parse := func(name string, fn func(string) error) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return
		}
		if err := fn(strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
	}
	parse("PREPEND", func(v string) (err error) {
		c.Prepend, err = strconv.ParseBool(v)
		return
	})
	parse("KEEP_DOWNLOAD", func(v string) (err error) {
		c.KeepDownload, err = strconv.ParseBool(v)
		return
	})
	parse("REQUEST_TIMEOUT", func(v string) (err error) {
		c.RequestTimeout, err = time.ParseDuration(v)
		return
	})
	parse("REQUESTS_PER_SECOND", func(v string) (err error) {
		c.RequestsPerSecond, err = strconv.ParseFloat(v, 64)
		return
	})
	parse("MAX_PAYLOAD_SIZE", func(v string) (err error) {
		c.MaxPayloadSize, err = strconv.ParseInt(v, 10, 64)
		return
	})
	return errors.Join(errs...)
}

// OutputPath is the full path of the artifact.
func (c Config) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputFile)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.ListingURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("listing URL %q must be an absolute http(s) URL", c.ListingURL))
	}
	if c.Prefix == "" {
		errs = append(errs, errors.New("name prefix must not be empty"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory must not be empty"))
	}
	if c.OutputFile == "" || c.OutputFile != filepath.Base(c.OutputFile) {
		errs = append(errs, fmt.Errorf("output file %q must be a plain file name", c.OutputFile))
	}
	if c.WorkDir == "" {
		errs = append(errs, errors.New("work directory must not be empty"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request timeout must not be negative"))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests per second must not be negative"))
	}
	if c.MaxPayloadSize < 0 {
		errs = append(errs, errors.New("max payload size must not be negative"))
	}

	return errors.Join(errs...)
}
