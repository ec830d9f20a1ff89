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
	"strings"
	"time"
)

// Constants related to the published feed bucket.
const (
	// DefaultListingURL is the public bucket listing the feed's data files.
	// Data files are fetched from DefaultListingURL + key.
	DefaultListingURL = "https://covid-19-threat-domains.s3.amazonaws.com/"
	// DefaultNamePrefix selects the daily domain exports among the bucket objects.
	DefaultNamePrefix = "covid"
	// DefaultExcludedClassification is the generic search term whose matches are too noisy to import.
	DefaultExcludedClassification = "virus"

	// ClassificationColumn holds the search term that produced the match.
	ClassificationColumn = "Query"
	// MatchColumn holds the raw candidate domain.
	MatchColumn = "Match"

	// DefaultMaxPayloadSize bounds a single listing or data file download.
	DefaultMaxPayloadSize = 256 * 1024 * 1024 // 256MB

	UserAgent = "rxcovid (+https://github.com/x-stp/rxcovid)"
)

// ListingEntry is one object advertised by the bucket listing.
type ListingEntry struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// HasPrefix reports whether the entry's key starts with prefix (case-sensitive).
func (e ListingEntry) HasPrefix(prefix string) bool {
	return strings.HasPrefix(e.Key, prefix)
}

// Listing is the parsed bucket enumeration.
type Listing struct {
	Bucket    string
	Truncated bool // the server returned only the first page
	Entries   []ListingEntry
}

// RawRecord is a single row of a downloaded data file.
type RawRecord struct {
	Classification string
	Match          string
}

// Columns names the header fields ReadRecords extracts.
type Columns struct {
	Classification string
	Match          string
}

// DefaultColumns returns the column names used by the published CSV exports.
func DefaultColumns() Columns {
	return Columns{
		Classification: ClassificationColumn,
		Match:          MatchColumn,
	}
}
