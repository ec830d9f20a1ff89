package util

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

import "strings"

// maxNameLength keeps generated names well under common filesystem limits.
const maxNameLength = 100

// SanitizeFilename creates a filesystem-safe filename from an object key or other string.
// Path separators and characters reserved on common filesystems become underscores.
func SanitizeFilename(input string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, input)
	if len(replaced) > maxNameLength {
		replaced = replaced[:maxNameLength]
		// don't leave a split multi-byte rune at the end
		replaced = strings.ToValidUTF8(replaced, "")
	}
	return replaced
}

// LocalName returns the name under which the bucket object key is stored in the work directory.
func LocalName(key string) string {
	name := strings.Trim(SanitizeFilename(key), ". ")
	if name == "" {
		return "download"
	}
	return name
}
