//go:build !unix

package output

import "os"

// checkWritable creates and removes a probe file, as there is no access(2) here.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".rxcovid-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
