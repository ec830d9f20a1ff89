package core

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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/x-stp/rxcovid/internal/client"
	"github.com/x-stp/rxcovid/internal/config"
	"github.com/x-stp/rxcovid/internal/feed"
	"github.com/x-stp/rxcovid/internal/metrics"
	"github.com/x-stp/rxcovid/internal/normalize"
	"github.com/x-stp/rxcovid/internal/output"
	"github.com/x-stp/rxcovid/internal/util"
)

// Result summarizes a successful Run.
type Result struct {
	Source     feed.ListingEntry
	Downloaded int64 // bytes
	Records    int
	Stats      normalize.Stats
	Output     *output.Result
	Elapsed    time.Duration
}

// newFetcher configures the shared HTTP client from cfg and returns a fetcher on it.
func newFetcher(cfg config.Config) *feed.Fetcher {
	client.InitHTTPClient(&client.Config{
		RequestTimeout: cfg.RequestTimeout,
		UserAgent:      feed.UserAgent,
	})
	return feed.NewFetcher(cfg.ListingURL, &feed.FetcherOptions{
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxPayloadSize:    cfg.MaxPayloadSize,
	})
}

// Run executes one sync: preflight, resolve, download, parse, normalize and write.
// Steps run strictly in order and the first failure stops the run. A parse
// failure returns before the output file is touched.
func Run(ctx context.Context, cfg config.Config) (*Result, error) {
	start := time.Now()
	res, err := run(ctx, cfg)

	elapsed := time.Since(start)
	var source time.Time
	if res != nil {
		res.Elapsed = elapsed
		source = res.Source.LastModified
	}
	metrics.GetMetrics().RecordRun(elapsed, string(KindOf(err)), source)
	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			gologger.Warning().Msgf("Could not write metrics to %s: %v", cfg.MetricsFile, werr)
		}
	}
	return res, err
}

func run(ctx context.Context, cfg config.Config) (*Result, error) {
	if err := output.Preflight(cfg.OutputDir, cfg.WorkDir); err != nil {
		return nil, err
	}

	fetcher := newFetcher(cfg)
	entry, err := fetcher.ResolveLatest(ctx, cfg.Prefix)
	if err != nil {
		return nil, err
	}
	gologger.Info().Msgf("Latest data file is %s (modified %s)", entry.Key, entry.LastModified.Format(time.RFC3339))

	records, n, err := fetchRecords(ctx, fetcher, entry, cfg)
	if err != nil {
		return nil, err
	}

	lines, stats := normalize.Normalize(records, normalize.Options{
		Exclude: cfg.Exclude,
		Prepend: cfg.Prepend,
	})
	recordStats(stats)
	gologger.Info().Msgf("Normalized %d rows: %d excluded, %d duplicates, %d repairs, %d lines",
		stats.Rows, stats.Excluded, stats.Duplicates, stats.WildcardFixes+stats.EscapeFixes, stats.Lines)

	out, err := output.WriteList(cfg.OutputPath(), cfg.WorkDir, lines)
	if err != nil {
		return nil, err
	}
	metrics.GetMetrics().RecordOutput(out.Lines, out.Bytes, out.Changed)

	return &Result{
		Source:     entry,
		Downloaded: n,
		Records:    len(records),
		Stats:      stats,
		Output:     out,
	}, nil
}

// fetchRecords downloads entry into the work directory and parses it.
// The local copy is removed afterwards unless cfg.KeepDownload is set.
func fetchRecords(ctx context.Context, fetcher *feed.Fetcher, entry feed.ListingEntry, cfg config.Config) ([]feed.RawRecord, int64, error) {
	local := filepath.Join(cfg.WorkDir, util.LocalName(entry.Key))
	f, err := os.Create(local)
	if err != nil {
		return nil, 0, &output.Error{Op: "create", Path: local, Err: err}
	}
	keep := cfg.KeepDownload
	defer func() {
		f.Close()
		if !keep {
			if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
				gologger.Warning().Msgf("Could not remove %s: %v", local, err)
			}
		}
	}()

	n, err := fetcher.Download(ctx, entry.Key, f)
	if err != nil {
		// never keep a partial body
		keep = false
		return nil, n, err
	}
	gologger.Debug().Msgf("Downloaded %s to %s (%d bytes)", entry.Key, local, n)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, n, &output.Error{Op: "seek", Path: local, Err: err}
	}
	records, err := feed.ReadRecords(bufio.NewReaderSize(f, DefaultDiskBufferSize), feed.DefaultColumns())
	if err != nil {
		return nil, n, fmt.Errorf("%s: %w", entry.Key, err)
	}
	if keep {
		gologger.Info().Msgf("Keeping downloaded file %s", local)
	}
	return records, n, nil
}

func recordStats(st normalize.Stats) {
	m := metrics.GetMetrics()
	m.AddRecords(StageRead, st.Rows)
	m.AddRecords(StageExcluded, st.Excluded)
	m.AddRecords(StageEmpty, st.Empty)
	m.AddRecords(StageDuplicate, st.Duplicates)
	m.AddRecords(StageRepaired, st.WildcardFixes+st.EscapeFixes)
	m.AddRecords(StageEmitted, st.Lines)
}

// Resolve returns the newest data file matching cfg.Prefix.
func Resolve(ctx context.Context, cfg config.Config) (feed.ListingEntry, error) {
	return newFetcher(cfg).ResolveLatest(ctx, cfg.Prefix)
}

// List returns every data file matching cfg.Prefix, newest first.
func List(ctx context.Context, cfg config.Config) ([]feed.ListingEntry, error) {
	listing, err := newFetcher(cfg).Listing(ctx)
	if err != nil {
		return nil, err
	}
	return feed.MatchingEntries(listing.Entries, cfg.Prefix), nil
}
