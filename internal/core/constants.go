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

// Stage labels for the rxcovid_records_total metric.
const (
	StageRead      = "read"
	StageExcluded  = "excluded"
	StageEmpty     = "empty"
	StageDuplicate = "duplicate"
	StageRepaired  = "repaired"
	StageEmitted   = "emitted"
)

// DefaultDiskBufferSize is the bufio size used when reading the downloaded data file.
const DefaultDiskBufferSize = 256 * 1024 // 256KB
