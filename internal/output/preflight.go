package output

import (
	"os"

	"github.com/projectdiscovery/gologger"
)

// Preflight makes sure every dir exists and is writable.
// It runs before any network call so a bad destination fails fast.
func Preflight(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, DirMode); err != nil {
			return &Error{Op: "preflight", Path: dir, Err: err}
		}
		if err := checkWritable(dir); err != nil {
			return &Error{Op: "preflight", Path: dir, Err: err}
		}
		gologger.Debug().Msgf("Directory %s is ready", dir)
	}
	return nil
}
