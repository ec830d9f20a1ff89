package feed

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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/x-stp/rxcovid/internal/client"
	"github.com/x-stp/rxcovid/internal/metrics"
	"golang.org/x/time/rate"
)

// Endpoint labels used for metrics and logs.
const (
	endpointListing  = "listing"
	endpointDownload = "download"
)

// FetcherOptions tunes a Fetcher. A nil or zero-value FetcherOptions uses defaults.
type FetcherOptions struct {
	// Client overrides the shared HTTP client.
	Client *http.Client
	// RequestsPerSecond paces requests against the bucket. Zero disables pacing.
	RequestsPerSecond float64
	// MaxPayloadSize bounds every response body. Zero means DefaultMaxPayloadSize.
	MaxPayloadSize int64
}

// Fetcher talks to the feed bucket: one GET for the listing, one GET per data file.
// Failures are returned as *TransportError; nothing is retried.
type Fetcher struct {
	listingURL string
	baseURL    string // listingURL without query, with a trailing slash
	client  *http.Client
	limiter *rate.Limiter
	maxSize int64
}

// NewFetcher creates a Fetcher for the bucket listed at listingURL.
// The listing is requested verbatim; data files are resolved below the same path.
func NewFetcher(listingURL string, opts *FetcherOptions) *Fetcher {
	if opts == nil {
		opts = &FetcherOptions{}
	}
	base := listingURL
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	f := &Fetcher{
		listingURL: listingURL,
		baseURL:    strings.TrimRight(base, "/") + "/",
		client:     opts.Client,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxSize:    opts.MaxPayloadSize,
	}
	if f.client == nil {
		f.client = client.GetHTTPClient()
	}
	if opts.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	if f.maxSize <= 0 {
		f.maxSize = DefaultMaxPayloadSize
	}
	return f
}

// ListingURL returns the listing URL as configured.
func (f *Fetcher) ListingURL() string {
	return f.listingURL
}

// FileURL returns the download URL of key.
func (f *Fetcher) FileURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return f.baseURL + strings.Join(segments, "/")
}

// Listing fetches and parses the bucket enumeration.
func (f *Fetcher) Listing(ctx context.Context) (*Listing, error) {
	var buf bytes.Buffer
	if _, err := f.get(ctx, endpointListing, f.listingURL, &buf); err != nil {
		return nil, err
	}

	listing, err := ParseListing(&buf)
	if err != nil {
		return nil, err
	}
	if listing.Truncated {
		gologger.Warning().Msgf("Bucket listing for %s is truncated, only the first page (%d objects) is considered", f.listingURL, len(listing.Entries))
	}
	gologger.Debug().Msgf("Listing returned %d objects", len(listing.Entries))
	return listing, nil
}

// ResolveLatest returns the most recently modified data file whose key starts with prefix.
func (f *Fetcher) ResolveLatest(ctx context.Context, prefix string) (ListingEntry, error) {
	listing, err := f.Listing(ctx)
	if err != nil {
		return ListingEntry{}, err
	}
	return SelectLatest(listing.Entries, prefix)
}

// Download streams the data file key into w and returns the number of bytes written.
// On error w may hold a partial body; callers must discard it.
func (f *Fetcher) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	return f.get(ctx, endpointDownload, f.FileURL(key), w)
}

func (f *Fetcher) get(ctx context.Context, endpoint, target string, w io.Writer) (int64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, &TransportError{URL: target, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, &TransportError{URL: target, Err: fmt.Errorf("error creating request: %w", err)}
	}

	done := metrics.MeasureDuration(metrics.GetMetrics().NetworkRequestDuration, map[string]string{"endpoint": endpoint})
	defer done()

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.GetMetrics().RecordRequest(endpoint, 0, 0)
		return 0, &TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.GetMetrics().RecordRequest(endpoint, resp.StatusCode, 0)
		return 0, &TransportError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %q", resp.Status),
		}
	}

	// Read one byte past the limit so an oversized body is told apart from one exactly at the limit.
	lr := &io.LimitedReader{R: resp.Body, N: f.maxSize + 1}
	n, err := io.Copy(w, lr)
	metrics.GetMetrics().RecordRequest(endpoint, resp.StatusCode, n)
	if err != nil {
		return n, &TransportError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("error reading body: %w", err)}
	}
	if n > f.maxSize {
		return n, &TransportError{URL: target, StatusCode: resp.StatusCode, Err: ErrPayloadTooLarge}
	}

	gologger.Debug().Str("endpoint", endpoint).Msgf("GET %s: %d bytes in %s", target, n, time.Since(start).Round(time.Millisecond))
	return n, nil
}
