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
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/projectdiscovery/gologger"
)

// timestampLayouts are tried in order when parsing LastModified values.
// S3 emits RFC3339 with milliseconds; mirrors and fixtures sometimes drop the zone or the time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseListing parses an S3-style ListBucketResult document.
// Contents elements without a Key, or with a LastModified that cannot be parsed, are skipped.
func ParseListing(r io.Reader) (*Listing, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &ParseError{Source: "listing", Err: err}
	}

	root := xmlquery.FindOne(doc, "/ListBucketResult")
	if root == nil {
		return nil, &ParseError{Source: "listing", Err: errors.New("missing ListBucketResult element")}
	}

	listing := &Listing{
		Bucket:    childText(root, "Name"),
		Truncated: strings.EqualFold(childText(root, "IsTruncated"), "true"),
	}

	for _, n := range xmlquery.Find(root, "Contents") {
		key := childText(n, "Key")
		if key == "" {
			continue
		}
		raw := childText(n, "LastModified")
		ts, err := parseTimestamp(raw)
		if err != nil {
			gologger.Debug().Str("key", key).Msgf("skipping listing entry: %v", err)
			continue
		}
		size, _ := strconv.ParseInt(childText(n, "Size"), 10, 64)
		listing.Entries = append(listing.Entries, ListingEntry{
			Key:          key,
			LastModified: ts,
			Size:         size,
		})
	}

	return listing, nil
}

// SelectLatest returns the entry with the most recent LastModified among those whose key
// starts with prefix. When timestamps tie the entry encountered last wins.
// ErrNotFound is returned when nothing matches.
func SelectLatest(entries []ListingEntry, prefix string) (ListingEntry, error) {
	var latest ListingEntry
	found := false
	for _, e := range entries {
		if !e.HasPrefix(prefix) {
			continue
		}
		if !found || !e.LastModified.Before(latest.LastModified) {
			latest = e
			found = true
		}
	}
	if !found {
		return ListingEntry{}, fmt.Errorf("%w: %q", ErrNotFound, prefix)
	}
	return latest, nil
}

// MatchingEntries returns the entries whose key starts with prefix, newest first.
func MatchingEntries(entries []ListingEntry, prefix string) []ListingEntry {
	var matched []ListingEntry
	for _, e := range entries {
		if e.HasPrefix(prefix) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].LastModified.After(matched[j].LastModified)
	})
	return matched
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty LastModified")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised LastModified %q", raw)
}

func childText(n *xmlquery.Node, name string) string {
	c := n.SelectElement(name)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.InnerText())
}
