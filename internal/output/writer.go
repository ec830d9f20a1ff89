/*
Package output writes the reference set artifact.

The list is written to a temporary file in the work directory first. Only once
that file is complete is the previous artifact removed and the new one moved
into place, so a failed run never leaves a half-written list behind.
*/
package output

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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/projectdiscovery/gologger"
	"github.com/zeebo/xxh3"
)

const (
	// DefaultBufferSize is the bufio size used for the temporary file.
	DefaultBufferSize = 256 * 1024 // 256KB

	// FileMode is the permission of the written artifact.
	FileMode = 0644
	// DirMode is used for directories created by Preflight.
	DirMode = 0755
)

// Result describes a written artifact.
type Result struct {
	Path    string
	Lines   int
	Bytes   int64
	Digest  uint64 // xxh3 of the content
	Changed bool   // content differs from the file it replaced, or there was none
}

// WriteList writes lines, each terminated by "\n", to path.
// The content is staged in workDir and moved into place after any previous
// file at path has been deleted.
func WriteList(path, workDir string, lines []string) (*Result, error) {
	prev, hadPrev, err := digestFile(path)
	if err != nil {
		return nil, &Error{Op: "read", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(workDir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, &Error{Op: "create", Path: workDir, Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	h := xxh3.New()
	bw := bufio.NewWriterSize(io.MultiWriter(tmp, h), DefaultBufferSize)
	var n int64
	for _, line := range lines {
		w, err := bw.WriteString(line)
		n += int64(w)
		if err == nil {
			err = bw.WriteByte('\n')
			n++
		}
		if err != nil {
			tmp.Close()
			return nil, &Error{Op: "write", Path: tmpPath, Err: err}
		}
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return nil, &Error{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, &Error{Op: "sync", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &Error{Op: "close", Path: tmpPath, Err: err}
	}
	if err := os.Chmod(tmpPath, FileMode); err != nil {
		return nil, &Error{Op: "chmod", Path: tmpPath, Err: err}
	}

	if hadPrev {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Op: "remove", Path: path, Err: err}
		}
	}
	if err := move(tmpPath, path); err != nil {
		return nil, &Error{Op: "move", Path: path, Err: err}
	}
	committed = true

	digest := h.Sum64()
	res := &Result{
		Path:    path,
		Lines:   len(lines),
		Bytes:   n,
		Digest:  digest,
		Changed: !hadPrev || prev != digest,
	}
	gologger.Debug().Str("digest", fmt.Sprintf("%016x", digest)).Msgf("Wrote %d lines (%d bytes) to %s", res.Lines, res.Bytes, path)
	return res, nil
}

// move renames src to dst. When the rename fails, as it does across
// filesystems, the content is copied and src removed.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	gologger.Debug().Msgf("Rename %s -> %s failed (%v), copying instead", src, dst, err)
	if err := copyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, FileMode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// digestFile hashes an existing file. A missing file is not an error.
func digestFile(path string) (uint64, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, false, err
	}
	return h.Sum64(), true, nil
}
