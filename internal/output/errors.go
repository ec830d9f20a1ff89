package output

import "fmt"

// Error is a filesystem failure while preparing or writing the artifact.
type Error struct {
	Op   string // "preflight", "write", "replace", ...
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
