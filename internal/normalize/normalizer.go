/*
Package normalize turns raw feed rows into the lines of a reference set import.

Rows are filtered by classification and deduplicated on the raw match field,
then each surviving entry is repaired and optionally expanded into
scheme-prefixed variants. There is no uniqueness pass after repair or
expansion: two raw strings that repair to the same value both reach the output.
*/
package normalize

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
	"regexp"
	"strings"

	"github.com/x-stp/rxcovid/internal/feed"
)

const (
	wildcardPrefix = "*."
	wildcardRepl   = "www."

	// EscapeMarker is the upstream encoding of a space inside the match field.
	EscapeMarker = `\032`
)

var (
	// IPv4-like runs of three or four numeric groups glued to the marker. The run must
	// start the string or follow a character that is neither a digit nor a dot, so a
	// longer number such as 1234.5.6.7 is left whole. Group 1 is that character.
	ipMarkerRe = regexp.MustCompile(`(^|[^\d.])(?:(?:\d{1,3}\.){2,3}\d{1,3}` + regexp.QuoteMeta(EscapeMarker) + `)+`)
	markerRe   = regexp.MustCompile(regexp.QuoteMeta(EscapeMarker))
)

// DefaultPrefixes are the scheme prefixes used when expansion is enabled.
var DefaultPrefixes = []string{"http://", "https://"}

// Options controls Normalize.
type Options struct {
	// Exclude drops rows whose classification equals it exactly. Empty disables the filter.
	Exclude string
	// Prepend emits scheme-prefixed variants after every entry.
	Prepend bool
	// Prefixes overrides DefaultPrefixes when Prepend is set.
	Prefixes []string
}

// DefaultOptions returns the options matching the published feed.
func DefaultOptions() Options {
	return Options{Exclude: feed.DefaultExcludedClassification}
}

// Stats counts what happened to the rows of one Normalize call.
type Stats struct {
	Rows          int // rows read
	Excluded      int // dropped by classification
	Empty         int // dropped for an empty match field
	Duplicates    int // dropped as repeated match fields
	Unique        int
	WildcardFixes int
	EscapeFixes   int
	Lines         int // lines emitted
}

// FilterUnique drops rows classified as exclude and rows with an empty match,
// then deduplicates on the raw match field keeping first-seen order.
func FilterUnique(records []feed.RawRecord, exclude string) []string {
	set, _ := filterUnique(records, exclude)
	return set.Items()
}

func filterUnique(records []feed.RawRecord, exclude string) (*OrderedSet, Stats) {
	st := Stats{Rows: len(records)}
	set := NewOrderedSet(len(records))
	for _, rec := range records {
		if exclude != "" && rec.Classification == exclude {
			st.Excluded++
			continue
		}
		if rec.Match == "" {
			st.Empty++
			continue
		}
		if !set.Add(rec.Match) {
			st.Duplicates++
		}
	}
	st.Unique = set.Len()
	return set, st
}

// Repair fixes the two known malformations of a match field.
// A leading "*." becomes "www.". Every IPv4-like sequence directly followed
// by the escape marker is removed, then any remaining marker is removed.
// Strings with neither pattern are returned unchanged.
func Repair(s string) string {
	out, _, _ := repair(s)
	return out
}

func repair(s string) (out string, wildcard, escape bool) {
	out = s
	if strings.HasPrefix(out, wildcardPrefix) {
		out = wildcardRepl + out[len(wildcardPrefix):]
		wildcard = true
	}
	if strings.Contains(out, EscapeMarker) {
		out = ipMarkerRe.ReplaceAllString(out, "${1}")
		out = markerRe.ReplaceAllLiteralString(out, "")
		escape = true
	}
	return out, wildcard, escape
}

// Expand returns s followed by prefix+s for every prefix, in order.
func Expand(s string, prefixes []string) []string {
	out := make([]string, 0, 1+len(prefixes))
	out = append(out, s)
	for _, p := range prefixes {
		out = append(out, p+s)
	}
	return out
}

// Normalize runs filter and dedup, repair and optional expansion over records.
// The returned lines are in first-seen order and may contain duplicates.
func Normalize(records []feed.RawRecord, opts Options) ([]string, Stats) {
	set, st := filterUnique(records, opts.Exclude)

	var prefixes []string
	if opts.Prepend {
		prefixes = opts.Prefixes
		if prefixes == nil {
			prefixes = DefaultPrefixes
		}
	}

	lines := make([]string, 0, set.Len()*(1+len(prefixes)))
	for _, raw := range set.Items() {
		clean, wildcard, escape := repair(raw)
		if wildcard {
			st.WildcardFixes++
		}
		if escape {
			st.EscapeFixes++
		}
		lines = append(lines, Expand(clean, prefixes)...)
	}
	st.Lines = len(lines)
	return lines, st
}
