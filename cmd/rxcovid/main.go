/*
Package main is the entry point for the rxcovid command-line application.

rxcovid fetches the published feed of COVID-19 themed malicious domains, picks
the newest data file from the feed bucket, normalizes its rows and writes a
plain one-domain-per-line file for a SIEM reference set import.

Subcommands:
  - sync (default): resolve, download, normalize and write the reference set file.
  - resolve: print the newest matching data file.
  - list: print every matching data file, newest first.

Configuration is resolved once before any command runs, from built-in defaults,
an optional YAML file (--config), RXCOVID_* environment variables (optionally
from a .env file) and finally command-line flags.
*/
package main

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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/x-stp/rxcovid/internal/config"
	"github.com/x-stp/rxcovid/internal/core"
	"github.com/x-stp/rxcovid/internal/metrics"
)

// Global flags (persistent across commands)
var (
	configFile string
	envFile    string
	debug      bool
	silent     bool

	// flagCfg receives flag values; only flags the user actually set are applied.
	flagCfg = config.Default()

	// cfg is the resolved configuration, set once in PersistentPreRunE.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rxcovid",
	Short: "rxcovid - COVID-19 threat domain feed exporter for SIEM reference sets",
	Long: `rxcovid downloads the newest COVID-19 threat domain export from the feed bucket,
drops rows classified as "virus", deduplicates and repairs the remaining domains
and writes them one per line for a SIEM reference set import.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runSync,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Write the reference set file from the newest data file (default command)",
	RunE:  runSync,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the newest data file in the feed bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := core.Resolve(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", entry.Key, entry.LastModified.Format(time.RFC3339))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the data files in the feed bucket, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := core.List(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s\n", e.Key)
			fmt.Printf("    \\- Modified: %s\n", e.LastModified.Format(time.RFC3339))
			fmt.Printf("    \\- Size:     %d bytes\n", e.Size)
		}
		fmt.Printf("Found %d data files with prefix %q\n", len(entries), cfg.Prefix)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML configuration file")
	pf.StringVar(&envFile, "env-file", ".env", "File with RXCOVID_* environment variables (ignored if missing)")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.BoolVar(&silent, "silent", false, "Only log errors")

	pf.StringVar(&flagCfg.ListingURL, "listing-url", flagCfg.ListingURL, "Feed bucket listing URL")
	pf.StringVar(&flagCfg.Prefix, "prefix", flagCfg.Prefix, "Key prefix of the data files")
	pf.Float64Var(&flagCfg.RequestsPerSecond, "rate-limit", 0, "Maximum requests per second against the bucket (0 for unlimited)")
	pf.DurationVar(&flagCfg.RequestTimeout, "timeout", flagCfg.RequestTimeout, "Timeout for a single HTTP request")

	f := syncCmd.Flags()
	for _, fs := range []*pflag.FlagSet{rootCmd.Flags(), f} {
		fs.StringVarP(&flagCfg.OutputDir, "output-dir", "o", flagCfg.OutputDir, "Directory of the reference set file")
		fs.StringVarP(&flagCfg.OutputFile, "output-file", "f", flagCfg.OutputFile, "Name of the reference set file")
		fs.StringVarP(&flagCfg.WorkDir, "work-dir", "w", flagCfg.WorkDir, "Directory for the download and temporary files")
		fs.BoolVarP(&flagCfg.Prepend, "prepend", "p", false, "Also emit http:// and https:// variants of every domain")
		fs.StringVar(&flagCfg.Exclude, "exclude", flagCfg.Exclude, "Drop rows with this classification (empty keeps all)")
		fs.BoolVar(&flagCfg.KeepDownload, "keep-download", false, "Keep the downloaded data file in the work directory")
		fs.StringVar(&flagCfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile collector file")
	}

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(listCmd)
}

// setup configures logging and resolves cfg before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	switch {
	case debug:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	case silent:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelError)
	}

	resolved, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	cfg = resolved

	if cfg.MetricsFile != "" {
		metrics.EnableMetrics()
	}
	gologger.Debug().Msgf("Configuration: %+v", cfg)
	return nil
}

// loadConfig layers defaults, the YAML file, the environment and changed flags.
func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	c := config.Default()
	if configFile != "" {
		if err := c.LoadFile(configFile); err != nil {
			return c, err
		}
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return c, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return c, fmt.Errorf("invalid environment: %w", err)
	}

	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("listing-url", func() { c.ListingURL = flagCfg.ListingURL })
	set("prefix", func() { c.Prefix = flagCfg.Prefix })
	set("rate-limit", func() { c.RequestsPerSecond = flagCfg.RequestsPerSecond })
	set("timeout", func() { c.RequestTimeout = flagCfg.RequestTimeout })
	set("output-dir", func() { c.OutputDir = flagCfg.OutputDir })
	set("output-file", func() { c.OutputFile = flagCfg.OutputFile })
	set("work-dir", func() { c.WorkDir = flagCfg.WorkDir })
	set("prepend", func() { c.Prepend = flagCfg.Prepend })
	set("exclude", func() { c.Exclude = flagCfg.Exclude })
	set("keep-download", func() { c.KeepDownload = flagCfg.KeepDownload })
	set("metrics-file", func() { c.MetricsFile = flagCfg.MetricsFile })

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	gologger.Info().Msgf("Syncing %s from %s", cfg.OutputPath(), cfg.ListingURL)

	res, err := core.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	state := "unchanged"
	if res.Output.Changed {
		state = "updated"
	}
	gologger.Info().Str("source", res.Source.Key).Msgf("Wrote %d lines to %s (%s) in %s",
		res.Output.Lines, res.Output.Path, state, res.Elapsed.Round(time.Millisecond))
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		gologger.Warning().Msgf("Received signal %v, cancelling...", sig)
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		gologger.Error().Str("kind", string(core.KindOf(err))).Msgf("%v", err)
		cancel()
		os.Exit(core.ExitCode(err))
	}
}
